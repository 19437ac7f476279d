package storage_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/storage"
)

// pngHeader минимальная сигнатура PNG, по которой определяется тип.
var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}

func TestBlobStorage_SaveAndDelete(t *testing.T) {
	root := t.TempDir()
	s, err := storage.NewBlobStorage(root, "/media/", 1)
	require.NoError(t, err)
	owner := uuid.New()

	file, err := s.Save(context.Background(), storage.CategorySlips, owner, bytes.NewReader(append(pngHeader, make([]byte, 1024)...)))
	require.NoError(t, err)
	assert.Equal(t, "image/png", file.ContentType)
	assert.Equal(t, int64(len(pngHeader)+1024), file.Size)
	assert.True(t, strings.HasPrefix(file.URL, "/media/slips/"+owner.String()+"/"))
	assert.True(t, strings.HasSuffix(file.URL, ".png"))

	onDisk := filepath.Join(root, strings.TrimPrefix(file.URL, "/media/"))
	_, err = os.Stat(onDisk)
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), file.URL))
	_, err = os.Stat(onDisk)
	assert.True(t, os.IsNotExist(err))
}

func TestBlobStorage_RejectsNonImages(t *testing.T) {
	s, err := storage.NewBlobStorage(t.TempDir(), "/media", 1)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Save(ctx, storage.CategoryChat, uuid.New(), strings.NewReader("#!/bin/sh\necho hi"))
	assert.True(t, apperror.IsValidation(err))

	_, err = s.Save(ctx, storage.CategoryChat, uuid.New(), bytes.NewReader(nil))
	assert.True(t, apperror.IsValidation(err))

	_, err = s.Save(ctx, "avatars", uuid.New(), bytes.NewReader(pngHeader))
	assert.True(t, apperror.IsValidation(err))

	assert.Error(t, s.Delete(ctx, "/elsewhere/file.png"))
	assert.Error(t, s.Delete(ctx, "/media/../secret"))
}

func TestBlobStorage_EnforcesSizeLimit(t *testing.T) {
	s, err := storage.NewBlobStorage(t.TempDir(), "/media", 1)
	require.NoError(t, err)

	big := append(append([]byte{}, pngHeader...), make([]byte, 1024*1024)...)
	_, err = s.Save(context.Background(), storage.CategoryEvidence, uuid.New(), bytes.NewReader(big))
	assert.True(t, apperror.IsValidation(err))
}
