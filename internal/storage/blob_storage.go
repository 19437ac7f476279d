package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// Категории загрузок, каждая хранится в своём подкаталоге.
const (
	CategorySlips    = "slips"
	CategoryChat     = "chat"
	CategoryEvidence = "evidence"
)

// Разрешённые типы изображений (по магическим байтам).
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var allowedCategories = map[string]bool{
	CategorySlips:    true,
	CategoryChat:     true,
	CategoryEvidence: true,
}

// BlobStorage локальное файловое хранилище изображений с постоянными URL вида /media/<категория>/<владелец>/<файл>.
type BlobStorage struct {
	rootPath       string
	baseURL        string
	maxUploadBytes int64
}

// StoredFile результат загрузки.
type StoredFile struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// NewBlobStorage создаёт файловое хранилище.
func NewBlobStorage(rootPath, baseURL string, maxUploadMB int64) (*BlobStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}
	return &BlobStorage{
		rootPath:       rootPath,
		baseURL:        strings.TrimRight(baseURL, "/"),
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// Save проверяет тип по содержимому и сохраняет файл. Расширение берётся из реального типа, а не из имени.
func (s *BlobStorage) Save(ctx context.Context, category string, ownerID uuid.UUID, r io.Reader) (*StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !allowedCategories[category] {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестная категория загрузки")
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, apperror.Wrap(err, apperror.ErrCodeBadRequest, "не удалось прочитать файл")
	}
	head = head[:n]
	if n == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "файл не может быть пустым")
	}

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown || !allowedMimeTypes[kind.MIME.Value] {
		return nil, apperror.New(apperror.ErrCodeValidation, "разрешены только изображения JPEG, PNG, GIF или WebP")
	}

	ownerDir := filepath.Join(s.rootPath, category, ownerID.String())
	if err := os.MkdirAll(ownerDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог: %w", err)
	}

	fileName := uuid.NewString() + "." + kind.Extension
	targetPath := filepath.Join(ownerDir, fileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	limited := io.LimitedReader{R: io.MultiReader(bytes.NewReader(head), r), N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limited)
	if err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}
	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("размер файла превышает лимит %d байт", s.maxUploadBytes))
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		return nil, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return &StoredFile{
		URL:         path.Join(s.baseURL, category, ownerID.String(), fileName),
		ContentType: kind.MIME.Value,
		Size:        written,
	}, nil
}

// Delete удаляет файл по URL, выданному Save.
func (s *BlobStorage) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	relative := strings.TrimPrefix(url, s.baseURL+"/")
	if relative == url || strings.Contains(relative, "..") {
		return apperror.New(apperror.ErrCodeValidation, "ссылка не относится к хранилищу")
	}
	if err := os.Remove(filepath.Join(s.rootPath, filepath.FromSlash(relative))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}
