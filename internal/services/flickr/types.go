package flickr

import (
	"encoding/json"
	"fmt"
)

// getInfoResponse is the flickr.photos.getInfo payload with nojsoncallback=1
type getInfoResponse struct {
	Stat    string     `json:"stat"`
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Photo   *photoInfo `json:"photo"`
}

type photoInfo struct {
	ID     string      `json:"id"`
	Secret string      `json:"secret"`
	Server string      `json:"server"`
	Farm   json.Number `json:"farm"`
	Title  struct {
		Content string `json:"_content"`
	} `json:"title"`
}

// imageURLBase builds https://farm{farm}.staticflickr.com/{server}/{id}_{secret}_
// The size suffix and extension are appended per use.
func (p *photoInfo) imageURLBase() string {
	return fmt.Sprintf("https://farm%s.staticflickr.com/%s/%s_%s_", p.Farm.String(), p.Server, p.ID, p.Secret)
}

// FetchError reports a failed metadata lookup. Code and Message carry the
// Flickr error when the service answered with stat=fail; StatusCode is set for
// non-200 HTTP responses.
type FetchError struct {
	PhotoID    string
	Code       int
	Message    string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Code != 0:
		return fmt.Sprintf("flickr error %d for photo %s: %s", e.Code, e.PhotoID, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("flickr request for photo %s failed: %s: %v", e.PhotoID, e.Message, e.Err)
	}
	return fmt.Sprintf("flickr request for photo %s failed: %s", e.PhotoID, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// answered reports whether Flickr itself rejected the request, as opposed to
// the service being unreachable or broken
func (e *FetchError) answered() bool {
	return e.Code != 0 || (e.StatusCode >= 200 && e.StatusCode < 500)
}
