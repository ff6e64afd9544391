package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CleanJSON(tc.in), "in=%q", tc.in)
	}
}

func TestIsRefusal(t *testing.T) {
	assert.True(t, IsRefusal("I am unable to process this document."))
	assert.True(t, IsRefusal("As a large language model, I cannot..."))
	assert.True(t, IsRefusal("I CANNOT PROVIDE that analysis"))
	assert.False(t, IsRefusal(`{"summary":"a normal answer"}`))
	assert.False(t, IsRefusal(""))
}
