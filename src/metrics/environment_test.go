package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferOS(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{":aws: Amazon Linux 1 - Unit Tests", "Amazon Linux 1"},
		{":aws: Amazon Linux 2 - Unit Tests", "Amazon Linux 2"},
		{":centos: CentOS 7.7 - Unit Tests", "CentOS 7"},
		{":fedora: Fedora 27 - Unit Tests", "Fedora 27"},
		{":darwin: macOS 10.13 High Sierra - Unit Tests", "High Sierra"},
		{":darwin: macOS 10.14 Mojave - Unit Tests", "Mojave"},
		{":ubuntu: Ubuntu 16.04 - Unit Tests", "Ubuntu 16.04"},
		{":ubuntu: Ubuntu 18.04 - Unit Tests", "Ubuntu 18.04"},
		{":docker: Docker - Serial Tests", "Docker"},
		{":windows: Windows - Unit Tests", UnknownOS},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := InferOS(tt.label)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferOS_MissingLabel(t *testing.T) {
	_, err := InferOS("  ")
	assert.True(t, errors.Is(err, ErrMissingLabel))
}

func TestNormalizeRepo(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"git@github.com:EOSIO/eos.git", "eos"},
		{"git@github.com:someone/eos.git", "someone/eos"},
		{"git@github.com:EOSIO/eosio.cdt", "eosio.cdt"},
		{"https://github.com/EOSIO/eos.git", "https://github.com/EOSIO/eos"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeRepo(tt.in), "NormalizeRepo(%q)", tt.in)
	}
}
