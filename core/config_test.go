package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_splitList(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []string
	}{
		{name: "default", values: []string{"EX-001"}, want: []string{"EX-001"}},
		{name: "comma separated", values: []string{"EX-001,SAMPLE"}, want: []string{"EX-001", "SAMPLE"}},
		{name: "comma and space", values: []string{"EX-001,", "SAMPLE"}, want: []string{"EX-001", "SAMPLE"}},
		{name: "blanks dropped", values: []string{" , EX-001 ,,"}, want: []string{"EX-001"}},
		{name: "empty", values: nil, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitList(tt.values))
		})
	}
}

func TestNewConfig_placeholderIDs(t *testing.T) {
	t.Setenv("ENV", "")

	t.Run("default", func(t *testing.T) {
		assert.Equal(t, []string{"EX-001"}, NewConfig().Import.PlaceholderIDs)
	})

	t.Run("from env", func(t *testing.T) {
		t.Setenv("DEV_IMPORTPLACEHOLDERIDS", "EX-001,SAMPLE")
		assert.Equal(t, []string{"EX-001", "SAMPLE"}, NewConfig().Import.PlaceholderIDs)
	})
}
