package store

import (
	"database/sql"
	"fmt"

	"github.com/openassembly/propmove/internal/domain"
)

// FileCreateParams contains parameters for recording a stored file.
// ID may be pre-minted by the caller when the storage path embeds it.
type FileCreateParams struct {
	ID        string
	Name      string
	Path      string
	Extension string
	MimeType  string
	Size      int64
	Type      domain.FileType
}

// CreateFile records a stored file's metadata and returns it.
func CreateFile(q Queryer, params FileCreateParams) (*domain.File, error) {
	if err := domain.ValidateFileType(string(params.Type)); err != nil {
		return nil, fmt.Errorf("failed to create file %q: %w", params.Name, err)
	}
	id := params.ID
	if id == "" {
		id = NewID()
	}
	_, err := q.Exec(`
		INSERT INTO files (id, name, path, extension, mime_type, size, type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, params.Name, params.Path, params.Extension, params.MimeType, params.Size, string(params.Type))
	if err != nil {
		return nil, fmt.Errorf("failed to create file %q: %w", params.Name, err)
	}
	return GetFile(q, id)
}

// GetFile loads a file record by id.
func GetFile(q Queryer, id string) (*domain.File, error) {
	var f domain.File
	var fileType string
	err := q.QueryRow(`
		SELECT id, name, path, extension, mime_type, size, type, created_at
		FROM files WHERE id = ?
	`, id).Scan(&f.ID, &f.Name, &f.Path, &f.Extension, &f.MimeType, &f.Size, &fileType, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("file not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load file: %w", err)
	}
	f.Type = domain.FileType(fileType)
	return &f, nil
}

// AttachmentFilesForProposition returns the attachment file records of a
// proposition ordered by name.
func AttachmentFilesForProposition(q Queryer, propositionID string) ([]*domain.File, error) {
	rows, err := q.Query(`
		SELECT f.id, f.name, f.path, f.extension, f.mime_type, f.size, f.type, f.created_at
		FROM files f
		JOIN proposition_attachments pa ON pa.file_id = f.id
		WHERE pa.proposition_id = ?
		ORDER BY f.name ASC
	`, propositionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var files []*domain.File
	for rows.Next() {
		var f domain.File
		var fileType string
		if err := rows.Scan(&f.ID, &f.Name, &f.Path, &f.Extension, &f.MimeType, &f.Size, &fileType, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		f.Type = domain.FileType(fileType)
		files = append(files, &f)
	}
	return files, rows.Err()
}
