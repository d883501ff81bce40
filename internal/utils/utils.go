package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/google/uuid"
	"github.com/madcarpet/dreamweaver/internal/models"
)

var fieldNameRe = regexp.MustCompile("^[A-Za-z0-9_]{1,64}$")

var ErrBadPageParam = errors.New("bad pagination parameter")

// CheckFieldName reports whether s can be used as a document field name in filters
func CheckFieldName(s string) bool {
	return fieldNameRe.MatchString(s)
}

// CheckDocumentID reports whether s is a store assigned document id
func CheckDocumentID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// ParsePage converts page number and page size query values to a store window.
// Empty values count as 0, size 0 disables the limit.
func ParsePage(page, size string) (models.Page, error) {
	p, err := parseNonNegative(page)
	if err != nil {
		return models.Page{}, fmt.Errorf("page %q: %w", page, err)
	}
	s, err := parseNonNegative(size)
	if err != nil {
		return models.Page{}, fmt.Errorf("size %q: %w", size, err)
	}
	return models.Page{Skip: p * s, Limit: s}, nil
}

func parseNonNegative(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil || n < 0 {
		return 0, ErrBadPageParam
	}
	return n, nil
}
