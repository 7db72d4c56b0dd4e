package utils

import (
	"strings"

	"github.com/google/uuid"
)

func BuildEventsListCacheKey(search *string) string {
	s := ""
	if search != nil {
		s = strings.ToLower(strings.TrimSpace(*search))
	}

	return "events:list:v1:search=" + s
}

func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
