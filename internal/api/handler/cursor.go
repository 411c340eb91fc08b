package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/cuongbtq/leadgen-crm/internal/api/storage"
)

// DecodeLeadCursor parses a "createdAtNanos|leadID" cursor. An empty string
// means the first page.
func DecodeLeadCursor(cursorStr string) (*storage.LeadCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	decodedParts := strings.Split(string(decoded), "|")
	if len(decodedParts) != 2 || decodedParts[1] == "" {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var createdAt int64
	_, err = fmt.Sscanf(decodedParts[0], "%d", &createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid createdAt in cursor: %w", err)
	}

	return &storage.LeadCursor{
		CreatedAt: time.Unix(0, createdAt).UTC(),
		LeadID:    decodedParts[1],
	}, nil
}

func EncodeLeadCursor(cursor *storage.LeadCursor) string {
	cs := fmt.Sprintf("%d|%s", cursor.CreatedAt.UnixNano(), cursor.LeadID)
	return base64.StdEncoding.EncodeToString([]byte(cs))
}
