package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	t.Setenv("PG_DSN", "postgres://x@db/alumnos")
	opts, err := parseFlags([]string{"--enqueue", "--timeout", "5s"})
	require.NoError(t, err)
	assert.True(t, opts.enqueue)
	assert.Equal(t, 5*time.Second, opts.timeout)
	assert.Equal(t, "postgres://x@db/alumnos", opts.dsn)

	_, err = parseFlags([]string{"--enqueue", "--stats"})
	assert.Error(t, err)
}
