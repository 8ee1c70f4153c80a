// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scan

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pdiddy/maezuru/pkg/types"
)

// MaxAttachmentSize is the largest file accepted for a scan (5 MiB).
const MaxAttachmentSize = 5 * 1024 * 1024

// ErrAttachmentTooLarge is returned before any content is read when a file
// exceeds MaxAttachmentSize.
var ErrAttachmentTooLarge = errors.New("file exceeds the 5MB security limit")

// LoadAttachment reads path, detects its MIME type and base64-encodes it.
func LoadAttachment(path string) (*types.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat attachment %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("attachment %s is a directory", path)
	}
	if info.Size() > MaxAttachmentSize {
		return nil, fmt.Errorf("%s (%d bytes): %w", path, info.Size(), ErrAttachmentTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading attachment %s: %w", path, err)
	}
	return EncodeAttachment(data)
}

// EncodeAttachment builds an Attachment from raw bytes, enforcing the same
// size ceiling as LoadAttachment.
func EncodeAttachment(data []byte) (*types.Attachment, error) {
	if len(data) > MaxAttachmentSize {
		return nil, fmt.Errorf("%d bytes: %w", len(data), ErrAttachmentTooLarge)
	}
	return &types.Attachment{
		MimeType: bareMediaType(mimetype.Detect(data).String()),
		Data:     base64.StdEncoding.EncodeToString(data),
	}, nil
}

// CheckAttachment rejects an already-encoded attachment whose decoded size
// exceeds MaxAttachmentSize. A nil attachment passes.
func CheckAttachment(att *types.Attachment) error {
	if att == nil {
		return nil
	}
	if n := DecodedSize(att.Data); n > MaxAttachmentSize {
		return fmt.Errorf("%d bytes: %w", n, ErrAttachmentTooLarge)
	}
	return nil
}

// DecodedSize returns the number of bytes encoded by the padded standard
// base64 string s, without decoding it.
func DecodedSize(s string) int {
	padding := 0
	for i := len(s) - 1; i >= 0 && padding < 2 && s[i] == '='; i-- {
		padding++
	}
	return base64.StdEncoding.DecodedLen(len(s)) - padding
}

// bareMediaType drops parameters such as "; charset=utf-8".
func bareMediaType(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.TrimSpace(m)
}
