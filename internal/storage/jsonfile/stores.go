package jsonfile

import (
	"context"
	"path/filepath"

	"ddrelay/internal/domain"
)

// CheckedStore keeps the checked article ids as a JSON array.
type CheckedStore struct {
	path string
}

func NewCheckedStore(dir string) *CheckedStore {
	return &CheckedStore{path: filepath.Join(dir, CheckedFile)}
}

func (s *CheckedStore) Load(_ context.Context) ([]string, error) {
	var ids []string
	if _, err := readJSON(s.path, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *CheckedStore) Save(_ context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	return writeJSON(s.path, ids)
}

// RehostStore keeps source-to-rehosted URL mappings as a JSON object.
type RehostStore struct {
	path string
}

func NewRehostStore(dir string) *RehostStore {
	return &RehostStore{path: filepath.Join(dir, RehostFile)}
}

func (s *RehostStore) Load(_ context.Context) (map[string]string, error) {
	entries := make(map[string]string)
	if _, err := readJSON(s.path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *RehostStore) Save(_ context.Context, entries map[string]string) error {
	if entries == nil {
		entries = map[string]string{}
	}
	return writeJSON(s.path, entries)
}

// ArchiveStore keeps processed diaries as a JSON array.
type ArchiveStore struct {
	path string
}

func NewArchiveStore(dir string) *ArchiveStore {
	return &ArchiveStore{path: filepath.Join(dir, ArchiveFile)}
}

func (s *ArchiveStore) Load(_ context.Context) ([]domain.ArchivedDiary, error) {
	var diaries []domain.ArchivedDiary
	if _, err := readJSON(s.path, &diaries); err != nil {
		return nil, err
	}
	return diaries, nil
}

func (s *ArchiveStore) Save(_ context.Context, diaries []domain.ArchivedDiary) error {
	if diaries == nil {
		diaries = []domain.ArchivedDiary{}
	}
	return writeJSON(s.path, diaries)
}
