package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteThenRead(t *testing.T) {
	s := NewStore()
	s.Write("/data/a", 1024)

	n, err := s.Read("/data/a")
	assert.NoError(t, err)
	assert.Equal(t, int64(1024), n)
}

func TestReadMissingReturnsFileNotFound(t *testing.T) {
	s := NewStore()
	_, err := s.Read("/data/missing")
	assert.Error(t, err)
}

func TestCopyPropagatesFileNotFound(t *testing.T) {
	s := NewStore()
	err := s.Copy("/data/missing", "/data/dst")
	assert.Error(t, err)
}

func TestCopyDuplicatesSize(t *testing.T) {
	s := NewStore()
	s.Write("/data/a", 2048)
	assert.NoError(t, s.Copy("/data/a", "/data/b"))

	n, err := s.Read("/data/b")
	assert.NoError(t, err)
	assert.Equal(t, int64(2048), n)
}

func TestDeleteMissingReturnsFileNotFound(t *testing.T) {
	s := NewStore()
	err := s.Delete("/data/missing")
	assert.Error(t, err)
}

func TestDeleteRemovesFile(t *testing.T) {
	s := NewStore()
	s.Write("/data/a", 10)
	assert.NoError(t, s.Delete("/data/a"))
	assert.False(t, s.Exists("/data/a"))
}
