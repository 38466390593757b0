package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseName(t *testing.T) {
	name, err := DatabaseName("mongodb://localhost:27017/archive")
	require.NoError(t, err)
	assert.Equal(t, "archive", name)

	name, err = DatabaseName("mongodb+srv://user:pw@cluster.example/?retryWrites=true")
	require.NoError(t, err)
	assert.Equal(t, "npat", name)

	_, err = DatabaseName("postgres://localhost/npat")
	assert.Error(t, err)

	_, err = DatabaseName("://bad")
	assert.Error(t, err)
}
