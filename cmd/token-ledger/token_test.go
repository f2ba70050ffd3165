package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	v, err := parseValue("1000")
	require.Nil(t, err)
	assert.EqualValues(t, 1000, v.ToInt().Int64())

	v, err = parseValue("0x10")
	require.Nil(t, err)
	assert.EqualValues(t, 16, v.ToInt().Int64())

	for _, s := range []string{"", "-1", "abc", "0x1" + strings.Repeat("0", 64)} {
		_, err := parseValue(s)
		assert.Error(t, err, s)
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := parseAddress("to", "0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	require.Nil(t, err)
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", addr.String())

	_, err = parseAddress("to", "0x1234")
	assert.Error(t, err)
}
