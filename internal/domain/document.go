package domain

import "time"

// Document is an uploaded file after text extraction.
type Document struct {
	ID           string    `json:"id"            db:"id"`
	FileID       string    `json:"file_id"       db:"file_id"`
	OriginalName string    `json:"original_name" db:"original_name"`
	FileSize     int64     `json:"file_size"     db:"file_size"`
	PageCount    int       `json:"page_count"    db:"page_count"`
	TextContent  string    `json:"text_content"  db:"text_content"`
	FilePath     string    `json:"file_path"     db:"file_path"`
	UserID       string    `json:"user_id,omitempty" db:"user_id"`
	CreatedAt    time.Time `json:"created_at"    db:"created_at"`
}

// NewDocument carries the fields needed to create a Document.
type NewDocument struct {
	FileID       string
	OriginalName string
	FileSize     int64
	PageCount    int
	TextContent  string
	FilePath     string
	UserID       string
}

// ExtractedText is the output of text extraction for one file.
type ExtractedText struct {
	TextContent string `json:"text_content"`
	PageCount   int    `json:"page_count"`
}
