package web_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vbonduro/examportal/internal/auth"
	"github.com/vbonduro/examportal/internal/catalogue"
	"github.com/vbonduro/examportal/internal/db"
	"github.com/vbonduro/examportal/internal/domain"
	"github.com/vbonduro/examportal/internal/docstore/local"
	"github.com/vbonduro/examportal/internal/notify"
	"github.com/vbonduro/examportal/internal/service"
	"github.com/vbonduro/examportal/internal/store"
	"github.com/vbonduro/examportal/internal/web"
	"github.com/vbonduro/examportal/internal/web/templates"
)

const (
	adminUser = "controller"
	adminPass = "exam-cell"
)

var testNow = time.Date(2026, time.October, 16, 10, 0, 0, 0, time.UTC)

// adminHash is computed once; argon2id is deliberately slow.
var adminHash = sync.OnceValue(func() string {
	h, err := auth.HashPassword(adminPass)
	if err != nil {
		panic(err)
	}
	return h
})

// recordingNotifier captures sent messages, failing with err when set.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) Sent() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.sent...)
}

type testEnv struct {
	srv       *httptest.Server
	uploadDir string
	calPath   string
	notifier  *recordingNotifier
	sessions  *auth.SessionStore
}

type envOption func(*service.Deps, *web.Options)

func withoutNotifier() envOption {
	return func(d *service.Deps, _ *web.Options) { d.Notifier = nil }
}

func withCSRF() envOption {
	return func(_ *service.Deps, o *web.Options) { o.CSRFKey = bytes.Repeat([]byte("k"), 32) }
}

func withFailingNotifier(err error) envOption {
	return func(d *service.Deps, _ *web.Options) { d.Notifier = &recordingNotifier{err: err} }
}

func withMaxUpload(n int64) envOption {
	return func(_ *service.Deps, o *web.Options) { o.MaxUploadBytes = n }
}

// newTestEnv wires a real web.Server over a temp upload directory, a JSON
// calendar file and a sqlite notification log.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		uploadDir: filepath.Join(dir, "uploads"),
		calPath:   filepath.Join(dir, "academiccalendar", "academic_calendar.json"),
		notifier:  &recordingNotifier{},
		sessions:  auth.NewSessionStore(),
	}

	docs, err := local.NewLocalDocumentStore(env.uploadDir)
	if err != nil {
		t.Fatalf("NewLocalDocumentStore: %v", err)
	}
	cal, err := store.NewCalendarFileStore(env.calPath, slog.Default())
	if err != nil {
		t.Fatalf("NewCalendarFileStore: %v", err)
	}
	database, err := db.Open(filepath.Join(dir, "examportal.db"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}

	deps := service.Deps{
		Catalogue:       catalogue.Default(),
		Documents:       docs,
		Verifier:        auth.NewHashVerifier(adminUser, adminHash()),
		Calendar:        cal,
		Notifier:        env.notifier,
		NotificationLog: store.NewNotificationStore(database),
		Clock:           func() time.Time { return testNow },
		Logger:          slog.Default(),
	}
	webOpts := web.Options{}
	for _, o := range opts {
		o(&deps, &webOpts)
	}

	server := web.NewServer(service.New(deps), templates.FS, env.sessions, webOpts, slog.Default())
	env.srv = httptest.NewServer(server)
	t.Cleanup(func() {
		env.srv.Close()
		_ = database.Close()
	})
	return env
}

// newClient returns a cookie-keeping client that does not follow redirects.
func (e *testEnv) newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (e *testEnv) adminClient(t *testing.T) *http.Client {
	t.Helper()
	c := e.newClient(t)
	resp := postForm(t, c, e.srv.URL+"/login", url.Values{"username": {adminUser}, "password": {adminPass}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("login status %d: %s", resp.StatusCode, readBody(t, resp))
	}
	return c
}

func get(t *testing.T, c *http.Client, u string) *http.Response {
	t.Helper()
	resp, err := c.Get(u)
	if err != nil {
		t.Fatalf("GET %s: %v", u, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func postForm(t *testing.T, c *http.Client, u string, v url.Values) *http.Response {
	t.Helper()
	resp, err := c.PostForm(u, v)
	if err != nil {
		t.Fatalf("POST %s: %v", u, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func upload(t *testing.T, c *http.Client, u, filename string, data []byte) *http.Response {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write file data: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	resp, err := c.Post(u, w.FormDataContentType(), body)
	if err != nil {
		t.Fatalf("POST %s: %v", u, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: status %d, want %d: %s",
			resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, readBody(t, resp))
	}
}

func uploadedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestIntegration_HomeRedirectsToFirstCategory(t *testing.T) {
	env := newTestEnv(t)
	resp := get(t, env.newClient(t), env.srv.URL+"/")
	expectStatus(t, resp, http.StatusSeeOther)
	if got := resp.Header.Get("Location"); got != "/documents/mid-semester-1" {
		t.Errorf("Location = %q", got)
	}
}

func TestIntegration_ListDocuments(t *testing.T) {
	env := newTestEnv(t)
	resp := get(t, env.newClient(t), env.srv.URL+"/documents/general")
	expectStatus(t, resp, http.StatusOK)

	body := readBody(t, resp)
	for _, want := range []string{"General Documents", "Seating Plan", "Service/Rate Chart", "Not uploaded yet"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, `type="file"`) {
		t.Error("visitor page shows upload form")
	}
	if resp.Header.Get("X-Frame-Options") != "DENY" {
		t.Error("security headers missing")
	}
}

func TestIntegration_UnknownCategory(t *testing.T) {
	env := newTestEnv(t)
	expectStatus(t, get(t, env.newClient(t), env.srv.URL+"/documents/nope"), http.StatusNotFound)
	expectStatus(t, get(t, env.newClient(t), env.srv.URL+"/documents/general/abc/download"), http.StatusNotFound)
}

func TestIntegration_Login(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient(t)

	u, _ := url.Parse(env.srv.URL)
	get(t, c, env.srv.URL+"/login")
	if got := c.Jar.Cookies(u); len(got) != 0 {
		t.Fatalf("visitor got a session cookie before any state change: %v", got)
	}
	expectStatus(t, postForm(t, c, env.srv.URL+"/reminders/dismiss", nil), http.StatusSeeOther)
	before := c.Jar.Cookies(u)

	resp := postForm(t, c, env.srv.URL+"/login", url.Values{"username": {adminUser}, "password": {"wrong"}})
	expectStatus(t, resp, http.StatusUnauthorized)
	if body := readBody(t, resp); !strings.Contains(body, "incorrect username or password") {
		t.Errorf("login failure message missing:\n%s", body)
	}

	resp = postForm(t, c, env.srv.URL+"/login", url.Values{"username": {adminUser}, "password": {adminPass}})
	expectStatus(t, resp, http.StatusSeeOther)

	after := c.Jar.Cookies(u)
	if len(before) != 1 || len(after) != 1 || before[0].Value == after[0].Value {
		t.Error("session token was not rotated on login")
	}

	resp = get(t, c, env.srv.URL+"/documents/general")
	if body := readBody(t, resp); !strings.Contains(body, `type="file"`) {
		t.Error("admin page has no upload form")
	}

	expectStatus(t, postForm(t, c, env.srv.URL+"/logout", nil), http.StatusSeeOther)
	resp = get(t, c, env.srv.URL+"/documents/general")
	if body := readBody(t, resp); strings.Contains(body, `type="file"`) {
		t.Error("upload form still shown after logout")
	}
}

func TestIntegration_SeatingPlanUploadAndDownload(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminClient(t)
	content := []byte("%PDF-1.4\nseating plan for hall A\n")

	resp := upload(t, admin, env.srv.URL+"/documents/general/1", "hall-a.pdf", content)
	expectStatus(t, resp, http.StatusSeeOther)

	visitor := env.newClient(t)
	resp = get(t, visitor, env.srv.URL+"/documents/general/1/download")
	expectStatus(t, resp, http.StatusOK)
	if got := resp.Header.Get("Content-Type"); got != "application/pdf" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := resp.Header.Get("Content-Disposition"); got != `attachment; filename="Seating Plan.pdf"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := readBody(t, resp); got != string(content) {
		t.Errorf("downloaded content differs: %q", got)
	}

	resp = get(t, visitor, env.srv.URL+"/documents/general")
	if body := readBody(t, resp); !strings.Contains(body, "Seating Plan.pdf") {
		t.Error("listing does not show uploaded file")
	}
}

func TestIntegration_VisitorCannotMutate(t *testing.T) {
	env := newTestEnv(t)
	visitor := env.newClient(t)

	expectStatus(t, upload(t, visitor, env.srv.URL+"/documents/general/1", "plan.pdf", []byte("x")), http.StatusForbidden)
	expectStatus(t, postForm(t, visitor, env.srv.URL+"/documents/general/1/delete", nil), http.StatusForbidden)
	expectStatus(t, postForm(t, visitor, env.srv.URL+"/calendar/events", url.Values{
		"activity": {"Mid Sem Exam"}, "start_date": {"2026-10-21"},
	}), http.StatusForbidden)
	expectStatus(t, get(t, visitor, env.srv.URL+"/notify"), http.StatusForbidden)
	expectStatus(t, postForm(t, visitor, env.srv.URL+"/notify", url.Values{
		"to": {"hod@example.edu"}, "subject": {"s"}, "body": {"b"},
	}), http.StatusForbidden)

	if files := uploadedFiles(t, env.uploadDir); len(files) != 0 {
		t.Errorf("upload directory changed: %v", files)
	}
	if _, err := os.Stat(env.calPath); !os.IsNotExist(err) {
		t.Errorf("calendar file was written: %v", err)
	}
	if sent := env.notifier.Sent(); len(sent) != 0 {
		t.Errorf("notifier called %d times", len(sent))
	}
}

func TestIntegration_UploadRejections(t *testing.T) {
	env := newTestEnv(t, withMaxUpload(1024))
	admin := env.adminClient(t)

	expectStatus(t, upload(t, admin, env.srv.URL+"/documents/general/1", "plan.exe", []byte("MZ")), http.StatusUnsupportedMediaType)
	expectStatus(t, upload(t, admin, env.srv.URL+"/documents/general/99", "plan.pdf", []byte("x")), http.StatusNotFound)
	expectStatus(t, upload(t, admin, env.srv.URL+"/documents/general/1", "plan.pdf", bytes.Repeat([]byte("x"), 4096)), http.StatusRequestEntityTooLarge)

	if files := uploadedFiles(t, env.uploadDir); len(files) != 0 {
		t.Errorf("rejected uploads left files: %v", files)
	}
}

func TestIntegration_DeleteDocument(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminClient(t)

	expectStatus(t, postForm(t, admin, env.srv.URL+"/documents/general/2/delete", nil), http.StatusNotFound)

	expectStatus(t, upload(t, admin, env.srv.URL+"/documents/general/2", "sheets.xlsx", []byte("xlsx")), http.StatusSeeOther)
	expectStatus(t, postForm(t, admin, env.srv.URL+"/documents/general/2/delete", nil), http.StatusSeeOther)
	expectStatus(t, get(t, admin, env.srv.URL+"/documents/general/2/download"), http.StatusNotFound)
}

func TestIntegration_CalendarAndReminders(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminClient(t)

	start := testNow.AddDate(0, 0, 5).Format("2006-01-02")
	resp := postForm(t, admin, env.srv.URL+"/calendar/events", url.Values{
		"activity": {"Mid Sem Exam"}, "start_date": {start},
	})
	expectStatus(t, resp, http.StatusSeeOther)

	visitor := env.newClient(t)
	resp = get(t, visitor, env.srv.URL+"/calendar")
	expectStatus(t, resp, http.StatusOK)
	body := readBody(t, resp)
	if !strings.Contains(body, "5 days remaining") {
		t.Errorf("calendar missing countdown:\n%s", body)
	}
	if !strings.Contains(body, "Upcoming activities") {
		t.Error("reminders sidebar missing")
	}

	resp = postForm(t, visitor, env.srv.URL+"/reminders/dismiss", url.Values{"return_to": {"/calendar"}})
	expectStatus(t, resp, http.StatusSeeOther)
	if got := resp.Header.Get("Location"); got != "/calendar" {
		t.Errorf("dismiss redirect = %q", got)
	}
	resp = get(t, visitor, env.srv.URL+"/calendar")
	if body := readBody(t, resp); strings.Contains(body, "Upcoming activities") {
		t.Error("reminders still shown after dismissal")
	}

	resp = postForm(t, visitor, env.srv.URL+"/reminders/dismiss", url.Values{"return_to": {"//evil.example"}})
	if got := resp.Header.Get("Location"); got != "/" {
		t.Errorf("open redirect allowed: %q", got)
	}
}

func TestIntegration_AddEventValidation(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminClient(t)

	expectStatus(t, postForm(t, admin, env.srv.URL+"/calendar/events", url.Values{
		"activity": {"Practicals"}, "start_date": {"2026-12-10"}, "end_date": {"2026-12-01"},
	}), http.StatusBadRequest)
	expectStatus(t, postForm(t, admin, env.srv.URL+"/calendar/events", url.Values{
		"start_date": {"2026-12-10"},
	}), http.StatusBadRequest)
}

func TestIntegration_SendNotification(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminClient(t)
	expectStatus(t, upload(t, admin, env.srv.URL+"/documents/general/1", "plan.pdf", []byte("pdf")), http.StatusSeeOther)

	resp := get(t, admin, env.srv.URL+"/notify")
	expectStatus(t, resp, http.StatusOK)
	if body := readBody(t, resp); !strings.Contains(body, `value="general/1"`) {
		t.Error("uploaded document not offered as attachment")
	}

	resp = postForm(t, admin, env.srv.URL+"/notify", url.Values{
		"to": {"hod@example.edu"}, "subject": {"Seating plan"}, "body": {"Attached."}, "attachment": {"general/1"},
	})
	expectStatus(t, resp, http.StatusOK)
	body := readBody(t, resp)
	if !strings.Contains(body, "Email sent to hod@example.edu") {
		t.Errorf("confirmation missing:\n%s", body)
	}

	sent := env.notifier.Sent()
	if len(sent) != 1 || sent[0].Attachment == nil || sent[0].Attachment.Filename != "Seating Plan.pdf" {
		t.Fatalf("unexpected messages: %+v", sent)
	}

	resp = postForm(t, admin, env.srv.URL+"/notify", url.Values{
		"to": {"not-an-address"}, "subject": {"s"}, "body": {"b"},
	})
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestIntegration_SendNotificationShowsRelayError(t *testing.T) {
	relayErr := fmt.Errorf("%w: smtp: 550 5.1.1 mailbox unavailable", domain.ErrTransport)
	env := newTestEnv(t, withFailingNotifier(relayErr))
	admin := env.adminClient(t)

	resp := postForm(t, admin, env.srv.URL+"/notify", url.Values{
		"to": {"hod@example.edu"}, "subject": {"Seating plan"}, "body": {"Attached."},
	})
	expectStatus(t, resp, http.StatusBadGateway)
	if body := readBody(t, resp); !strings.Contains(body, "550 5.1.1 mailbox unavailable") {
		t.Errorf("relay error not shown to admin:\n%s", body)
	}
}

func TestIntegration_CookielessRequestsStoreNoSession(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/healthz", "/documents/general", "/calendar", "/login"} {
		resp, err := http.Get(env.srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		_ = resp.Body.Close()
		if len(resp.Cookies()) != 0 {
			t.Errorf("GET %s set cookies %v", path, resp.Cookies())
		}
	}
	if n := env.sessions.Len(); n != 0 {
		t.Errorf("stored sessions = %d, want 0", n)
	}

	c := env.newClient(t)
	expectStatus(t, postForm(t, c, env.srv.URL+"/reminders/dismiss", nil), http.StatusSeeOther)
	if n := env.sessions.Len(); n != 1 {
		t.Errorf("stored sessions after dismiss = %d, want 1", n)
	}
}

func TestIntegration_NotifyDisabled(t *testing.T) {
	env := newTestEnv(t, withoutNotifier())
	admin := env.adminClient(t)
	expectStatus(t, get(t, admin, env.srv.URL+"/notify"), http.StatusNotFound)
}

func TestIntegration_CSRFRequiredForForms(t *testing.T) {
	env := newTestEnv(t, withCSRF())
	c := env.newClient(t)

	resp := get(t, c, env.srv.URL+"/login")
	expectStatus(t, resp, http.StatusOK)
	if body := readBody(t, resp); !strings.Contains(body, `name="csrf_token"`) {
		t.Error("login form has no csrf field")
	}

	resp = postForm(t, c, env.srv.URL+"/login", url.Values{"username": {adminUser}, "password": {adminPass}})
	expectStatus(t, resp, http.StatusForbidden)
}

func TestIntegration_Healthz(t *testing.T) {
	env := newTestEnv(t)
	resp := get(t, env.newClient(t), env.srv.URL+"/healthz")
	expectStatus(t, resp, http.StatusOK)
	if got := readBody(t, resp); got != "ok" {
		t.Errorf("body = %q", got)
	}
}
