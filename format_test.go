package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintTable(t *testing.T) {
	// Tests never run on a TTY, so printTable emits TSV.
	headers := []string{"CACHE ID", "OVERLAP"}
	rows := [][]string{
		{"12", "100%"},
		{"7", "54%"},
	}

	var buf bytes.Buffer
	printTable(&buf, headers, rows)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"CACHE ID\tOVERLAP",
		"12\t100%",
		"7\t54%",
	}, lines)
}

func TestPrintRow(t *testing.T) {
	var buf bytes.Buffer
	printRow(&buf, []string{"a", "bb"}, []int{4, 2})

	assert.Equal(t, "a     bb\n", buf.String())
}

func TestOnOff(t *testing.T) {
	assert.Equal(t, "enabled", onOff(true))
	assert.Equal(t, "disabled", onOff(false))
}
