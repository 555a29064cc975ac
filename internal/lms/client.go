package lms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"coursebridge/pkg/domain"
)

const (
	restPath = "/webservice/rest/server.php"

	// RoleStudent is the LMS role granted on enrollment.
	RoleStudent int64 = 5

	// The LMS signals "no such record" with this fault code on some lookup
	// functions instead of returning an empty list.
	codeInvalidParameter = "invalidparameter"
)

// API is the set of remote operations the engine needs from the LMS. The
// concrete Client implements it; tests substitute fakes.
type API interface {
	LookupUserByEmail(ctx context.Context, email string) (domain.Account, bool, error)
	LookupUserByID(ctx context.Context, id int64) (domain.Account, bool, error)
	CreateUser(ctx context.Context, in NewUser) (domain.Account, error)
	ListCourses(ctx context.Context) ([]RemoteCourse, error)
	ListCoursesWithImages(ctx context.Context) ([]RemoteCourse, error)
	GetCourseByID(ctx context.Context, id int64) (RemoteCourse, bool, error)
	ListCategories(ctx context.Context) ([]RemoteCategory, error)
	IsUserEnrolled(ctx context.Context, courseID, userID int64) (bool, error)
	Enroll(ctx context.Context, courseID, userID, roleID int64) (EnrollResult, error)
	Unenroll(ctx context.Context, courseID, userID int64) error
	DownloadFile(ctx context.Context, fileURL string) ([]byte, string, error)
}

// Client calls the LMS remote-procedure endpoint over HTTP. Responses come
// back in heterogeneous shapes (object, array, null, empty body, exception
// envelope); the client normalizes all of them into typed results so that
// the ambiguity never leaks past this package.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ API = (*Client)(nil)

// NewClient constructs an LMS client. Every call carries the given timeout.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// faultEnvelope is the LMS's structured error response.
type faultEnvelope struct {
	Exception string `json:"exception"`
	ErrorCode string `json:"errorcode"`
	Message   string `json:"message"`
}

// call executes one named remote function. A nil out discards the payload.
// An empty or null body decodes as success with out left at its zero value.
func (c *Client) call(ctx context.Context, fn string, p params, out any) error {
	form := url.Values{}
	form.Set("wstoken", c.token)
	form.Set("wsfunction", fn)
	form.Set("moodlewsrestformat", "json")
	p.encode(form)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+restPath, strings.NewReader(form.Encode()))
	if err != nil {
		return &TransportError{Op: fn, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: fn, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: fn, Err: err}
	}
	if resp.StatusCode >= 400 {
		return &TransportError{Op: fn, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '{' {
		var fault faultEnvelope
		if err := json.Unmarshal(trimmed, &fault); err == nil && fault.Exception != "" {
			return &RemoteFault{Op: fn, Exception: fault.Exception, ErrorCode: fault.ErrorCode, Message: fault.Message}
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return &ProtocolError{Op: fn, Err: err}
	}
	return nil
}

// isNotFoundFault reports whether err is the parameter-validation fault the
// LMS uses to signal an absent record on lookup functions.
func isNotFoundFault(err error) bool {
	var fault *RemoteFault
	return errors.As(err, &fault) && fault.ErrorCode == codeInvalidParameter
}

// LookupUserByEmail finds the account holding email. Both of the LMS's
// "not found" signals (empty result list, parameter-validation fault)
// normalize to ok=false with a nil error.
func (c *Client) LookupUserByEmail(ctx context.Context, email string) (domain.Account, bool, error) {
	p := params{
		"criteria": []any{
			map[string]any{"key": "email", "value": email},
		},
	}
	var out struct {
		Users []accountPayload `json:"users"`
	}
	if err := c.call(ctx, "core_user_get_users", p, &out); err != nil {
		if isNotFoundFault(err) {
			return domain.Account{}, false, nil
		}
		return domain.Account{}, false, err
	}
	if len(out.Users) == 0 {
		return domain.Account{}, false, nil
	}
	return out.Users[0].toDomain(), true, nil
}

// LookupUserByID finds an account by its numeric id, with the same
// not-found normalization as LookupUserByEmail.
func (c *Client) LookupUserByID(ctx context.Context, id int64) (domain.Account, bool, error) {
	p := params{
		"field":  "id",
		"values": []any{id},
	}
	var out []accountPayload
	if err := c.call(ctx, "core_user_get_users_by_field", p, &out); err != nil {
		if isNotFoundFault(err) {
			return domain.Account{}, false, nil
		}
		return domain.Account{}, false, err
	}
	if len(out) == 0 {
		return domain.Account{}, false, nil
	}
	return out[0].toDomain(), true, nil
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validateNewUser(in NewUser) error {
	if in.Username == "" {
		return &ValidationError{Field: "username", Reason: "required"}
	}
	if len(in.Username) > 100 {
		return &ValidationError{Field: "username", Reason: "longer than 100 characters"}
	}
	if in.Username != strings.ToLower(in.Username) {
		return &ValidationError{Field: "username", Reason: "must be lowercase"}
	}
	if !emailPattern.MatchString(in.Email) {
		return &ValidationError{Field: "email", Reason: "not a valid address"}
	}
	if in.Password == "" {
		return &ValidationError{Field: "password", Reason: "required"}
	}
	for _, name := range []struct{ field, value string }{
		{"firstname", in.FirstName},
		{"lastname", in.LastName},
	} {
		if name.value == "" {
			return &ValidationError{Field: name.field, Reason: "required"}
		}
		if strings.ContainsAny(name.value, "<>") {
			return &ValidationError{Field: name.field, Reason: "contains markup"}
		}
		for _, r := range name.value {
			if r < 0x20 {
				return &ValidationError{Field: name.field, Reason: "contains control characters"}
			}
		}
	}
	return nil
}

// CreateUser creates an account and re-fetches it by id so the caller gets
// the canonical stored username and email (the LMS may normalize both).
// Invalid input fails before any network call.
func (c *Client) CreateUser(ctx context.Context, in NewUser) (domain.Account, error) {
	if err := validateNewUser(in); err != nil {
		return domain.Account{}, err
	}
	p := params{
		"users": []any{
			map[string]any{
				"username":  in.Username,
				"email":     in.Email,
				"firstname": in.FirstName,
				"lastname":  in.LastName,
				"password":  in.Password,
				"auth":      "manual",
			},
		},
	}
	var created []struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}
	if err := c.call(ctx, "core_user_create_users", p, &created); err != nil {
		return domain.Account{}, err
	}
	if len(created) == 0 {
		return domain.Account{}, &ProtocolError{Op: "core_user_create_users", Err: errors.New("empty creation response")}
	}
	account, ok, err := c.LookupUserByID(ctx, created[0].ID)
	if err != nil {
		return domain.Account{}, err
	}
	if !ok {
		return domain.Account{}, &ProtocolError{Op: "core_user_create_users", Err: fmt.Errorf("created account %d not found on re-fetch", created[0].ID)}
	}
	return account, nil
}

// ListCoursesWithImages returns all courses including their overview files.
// This is the richer call; callers fall back to ListCourses when it fails.
func (c *Client) ListCoursesWithImages(ctx context.Context) ([]RemoteCourse, error) {
	p := params{"field": "", "value": ""}
	var out struct {
		Courses []json.RawMessage `json:"courses"`
	}
	if err := c.call(ctx, "core_course_get_courses_by_field", p, &out); err != nil {
		return nil, err
	}
	return decodeCourses("core_course_get_courses_by_field", out.Courses)
}

// ListCourses returns all courses without overview files. Documented
// fallback for LMS versions where the richer call is unavailable.
func (c *Client) ListCourses(ctx context.Context) ([]RemoteCourse, error) {
	var raw []json.RawMessage
	if err := c.call(ctx, "core_course_get_courses", params{}, &raw); err != nil {
		return nil, err
	}
	return decodeCourses("core_course_get_courses", raw)
}

func decodeCourses(op string, raw []json.RawMessage) ([]RemoteCourse, error) {
	courses := make([]RemoteCourse, 0, len(raw))
	for _, payload := range raw {
		var course RemoteCourse
		if err := json.Unmarshal(payload, &course); err != nil {
			return nil, &ProtocolError{Op: op, Err: err}
		}
		course.Raw = payload
		courses = append(courses, course)
	}
	return courses, nil
}

// GetCourseByID fetches one course, with not-found normalization.
func (c *Client) GetCourseByID(ctx context.Context, id int64) (RemoteCourse, bool, error) {
	p := params{"field": "id", "value": id}
	var out struct {
		Courses []json.RawMessage `json:"courses"`
	}
	if err := c.call(ctx, "core_course_get_courses_by_field", p, &out); err != nil {
		if isNotFoundFault(err) {
			return RemoteCourse{}, false, nil
		}
		return RemoteCourse{}, false, err
	}
	courses, err := decodeCourses("core_course_get_courses_by_field", out.Courses)
	if err != nil {
		return RemoteCourse{}, false, err
	}
	if len(courses) == 0 {
		return RemoteCourse{}, false, nil
	}
	return courses[0], true, nil
}

// ListCategories returns all course categories.
func (c *Client) ListCategories(ctx context.Context) ([]RemoteCategory, error) {
	var out []RemoteCategory
	if err := c.call(ctx, "core_course_get_categories", params{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IsUserEnrolled tests roster membership. A transport failure degrades to
// false because the caller's next step (enroll) is itself idempotent; do
// not reuse this helper for destructive operations.
func (c *Client) IsUserEnrolled(ctx context.Context, courseID, userID int64) (bool, error) {
	p := params{"courseid": courseID}
	var roster []struct {
		ID int64 `json:"id"`
	}
	if err := c.call(ctx, "core_enrol_get_enrolled_users", p, &roster); err != nil {
		var transport *TransportError
		if errors.As(err, &transport) {
			return false, nil
		}
		return false, err
	}
	for _, member := range roster {
		if member.ID == userID {
			return true, nil
		}
	}
	return false, nil
}

// Enroll adds userID to the course roster. Membership is checked first so
// repeated calls never issue a second mutating request; idempotence here is
// by construction, not an assumption about the LMS.
func (c *Client) Enroll(ctx context.Context, courseID, userID, roleID int64) (EnrollResult, error) {
	if roleID <= 0 {
		roleID = RoleStudent
	}
	enrolled, err := c.IsUserEnrolled(ctx, courseID, userID)
	if err != nil {
		return EnrollResult{}, err
	}
	if enrolled {
		return EnrollResult{AlreadyEnrolled: true}, nil
	}
	p := params{
		"enrolments": []any{
			map[string]any{
				"roleid":   roleID,
				"userid":   userID,
				"courseid": courseID,
			},
		},
	}
	if err := c.call(ctx, "enrol_manual_enrol_users", p, nil); err != nil {
		return EnrollResult{}, err
	}
	return EnrollResult{Enrolled: true}, nil
}

// Unenroll removes userID from the course roster.
func (c *Client) Unenroll(ctx context.Context, courseID, userID int64) error {
	p := params{
		"enrolments": []any{
			map[string]any{
				"userid":   userID,
				"courseid": courseID,
			},
		},
	}
	return c.call(ctx, "enrol_manual_unenrol_users", p, nil)
}

// DownloadFile fetches a file the LMS reported (e.g. a course cover) and
// returns its bytes and content type. The access token is appended as a
// query parameter, which is how the LMS authorizes plugin file URLs.
func (c *Client) DownloadFile(ctx context.Context, fileURL string) ([]byte, string, error) {
	parsed, err := url.Parse(fileURL)
	if err != nil {
		return nil, "", &ValidationError{Field: "fileurl", Reason: "not a valid URL"}
	}
	q := parsed.Query()
	q.Set("token", c.token)
	parsed.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", &TransportError{Op: "download", Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", &TransportError{Op: "download", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", &TransportError{Op: "download", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &TransportError{Op: "download", Err: err}
	}
	return data, resp.Header.Get("Content-Type"), nil
}
