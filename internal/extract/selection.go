package extract

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// BaseCursor is the page descriptor nested inside a Selection.
type BaseCursor struct {
	PageId        string `json:"page_id"`
	PageType      string `json:"page_type"`
	CursorVersion string `json:"cursor_version"`
}

// Selection tells the feed endpoint which content segment to return, it is
// sent as base-64 encoded JSON.
type Selection struct {
	Offset                int        `json:"offset"`
	ContentIds            []string   `json:"content_ids"`
	RequestParentId       string     `json:"request_parent_id"`
	RequestChildId        string     `json:"request_child_id"`
	CrossVerticalPageType string     `json:"cross_vertical_page_type"`
	PageStackTrace        []string   `json:"page_stack_trace"`
	VerticalIds           []string   `json:"vertical_ids"`
	BaseCursor            BaseCursor `json:"baseCursor"`
}

// DefaultSelection is the store carousel landing page the app requests from
// the home page, used when no section specific token could be found.
func DefaultSelection() Selection {
	return Selection{
		Offset:                0,
		ContentIds:            []string{"10821511", "27460306", "33917167"},
		RequestParentId:       "DEFAULT_HOMEPAGE",
		RequestChildId:        "carousel.standard:store_carousel:eta",
		CrossVerticalPageType: "DEFAULT_HOMEPAGE",
		PageStackTrace:        []string{},
		VerticalIds:           []string{},
		BaseCursor: BaseCursor{
			PageId:        "eta",
			PageType:      "STORE_CAROUSEL_LANDING",
			CursorVersion: "FACET",
		},
	}
}

// Encode renders the selection into its token form. Nil lists are encoded as
// empty lists, the backend rejects nulls in their place.
func (s Selection) Encode() (SectionToken, error) {
	if s.ContentIds == nil {
		s.ContentIds = []string{}
	}
	if s.PageStackTrace == nil {
		s.PageStackTrace = []string{}
	}
	if s.VerticalIds == nil {
		s.VerticalIds = []string{}
	}
	serialized, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return SectionToken(base64.StdEncoding.EncodeToString(serialized)), nil
}

// DecodeSelection is the inverse of Selection.Encode.
func DecodeSelection(token SectionToken) (Selection, error) {
	serialized, err := base64.StdEncoding.DecodeString(string(token))
	if err != nil {
		return Selection{}, fmt.Errorf("decode selection: base64: %w", err)
	}
	var s Selection
	err = json.Unmarshal(serialized, &s)
	if err != nil {
		return Selection{}, fmt.Errorf("decode selection: json: %w", err)
	}
	return s, nil
}

// DefaultToken is DefaultSelection in token form.
func DefaultToken() SectionToken {
	token, err := DefaultSelection().Encode()
	if err != nil {
		panic(fmt.Sprintf("encode default selection: %v", err))
	}
	return token
}
