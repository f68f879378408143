package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskConnectionString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://observer:s3cret@db:5432/stays", "postgres://observer:****@db:5432/stays"},
		{"postgres://observer@db:5432/stays", "postgres://observer@db:5432/stays"},
		{"host=db user=observer", "host=db user=observer"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, maskConnectionString(tt.in))
	}
}
