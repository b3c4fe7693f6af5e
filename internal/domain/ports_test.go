package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanResult_AddFile_GoFile(t *testing.T) {
	s := &ScanResult{}
	s.AddFile("foo.go")
	assert.Equal(t, []string{"foo.go"}, s.GoFiles)
	assert.Empty(t, s.TestFiles)
}

func TestScanResult_AddFile_TestFile(t *testing.T) {
	s := &ScanResult{}
	s.AddFile("pkg/foo_test.go")
	assert.Contains(t, s.GoFiles, "pkg/foo_test.go")
	assert.Contains(t, s.TestFiles, "pkg/foo_test.go")
}

func TestScanResult_AddFile_NonGoFile(t *testing.T) {
	s := &ScanResult{}
	s.AddFile("readme.md")
	assert.Empty(t, s.GoFiles)
	assert.Empty(t, s.TestFiles)
}

func TestScanResult_AddFile_Duplicate(t *testing.T) {
	s := &ScanResult{}
	s.AddFile("foo.go")
	s.AddFile("foo.go")
	assert.Len(t, s.GoFiles, 1)
}
