package lms

import (
	"encoding/json"
	"time"

	"coursebridge/pkg/domain"
)

// NewUser is the input for account creation. Callers sanitize the fields
// first; CreateUser rejects anything that would fail remotely anyway.
type NewUser struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// EnrollResult reports whether an enrollment call changed anything.
type EnrollResult struct {
	Enrolled        bool
	AlreadyEnrolled bool
}

// RemoteFile is one attachment the LMS reports for a course, typically an
// overview/cover file.
type RemoteFile struct {
	Filename     string `json:"filename"`
	FileURL      string `json:"fileurl"`
	MimeType     string `json:"mimetype"`
	FileSize     int64  `json:"filesize"`
	TimeModified int64  `json:"timemodified"`
}

// ModifiedAt converts the LMS epoch timestamp to a time.Time.
func (f RemoteFile) ModifiedAt() time.Time {
	if f.TimeModified == 0 {
		return time.Time{}
	}
	return time.Unix(f.TimeModified, 0).UTC()
}

// RemoteCourse is a course as the LMS reports it. Raw keeps the undecoded
// payload so the mirror can store a source snapshot.
type RemoteCourse struct {
	ID            int64        `json:"id"`
	FullName      string       `json:"fullname"`
	ShortName     string       `json:"shortname"`
	Summary       string       `json:"summary"`
	CategoryID    int64        `json:"categoryid"`
	CategoryName  string       `json:"categoryname"`
	Visible       int          `json:"visible"`
	TimeModified  int64        `json:"timemodified"`
	OverviewFiles []RemoteFile `json:"overviewfiles"`

	Raw json.RawMessage `json:"-"`
}

// RemoteCategory is a course category as the LMS reports it.
type RemoteCategory struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Parent int64  `json:"parent"`
}

type accountPayload struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

func (p accountPayload) toDomain() domain.Account {
	return domain.Account{
		ID:        p.ID,
		Username:  p.Username,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
	}
}
