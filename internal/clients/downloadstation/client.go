package downloadstation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	json "github.com/goccy/go-json"

	"webtlo/internal/clients"
	"webtlo/internal/config"
	"webtlo/internal/logging"
)

// Kind is the config kind served by this package.
const Kind = "downloadstation"

const (
	vendorName = "download station"

	apiInfo = "SYNO.API.Info"
	apiAuth = "SYNO.API.Auth"
	apiTask = "SYNO.DownloadStation.Task"

	sessionName = "DownloadStation"
)

var _ clients.Adapter = (*Adapter)(nil)

func init() {
	clients.Register(Kind, func(cfg config.Client, opts clients.Options) (clients.Adapter, error) {
		return New(cfg, opts), nil
	})
}

// HTTPDoer describes the HTTP client used by the adapter.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type apiEntry struct {
	Path       string `json:"path"`
	MinVersion int    `json:"minVersion"`
	MaxVersion int    `json:"maxVersion"`
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code int `json:"code"`
	} `json:"error"`
}

type taskList struct {
	Total int64  `json:"total"`
	Tasks []task `json:"tasks"`
}

type task struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Size       int64  `json:"size"`
	Status     string `json:"status"`
	Additional struct {
		Detail struct {
			Hash string `json:"hash"`
		} `json:"detail"`
		Transfer struct {
			SizeDownloaded int64 `json:"size_downloaded"`
		} `json:"transfer"`
	} `json:"additional"`
}

// Adapter talks to one Download Station instance. It is safe for concurrent
// use; calls are serialized on the session.
type Adapter struct {
	baseURL  string
	login    string
	password string
	client   HTTPDoer
	logger   *slog.Logger

	mu      sync.Mutex
	apis    map[string]apiEntry
	sid     string
	taskIDs map[string]string
}

// New constructs an adapter for cfg. No request is made until the first operation.
func New(cfg config.Client, opts clients.Options) *Adapter {
	scheme := "http"
	if cfg.HTTPS {
		scheme = "https"
	}
	var doer HTTPDoer = http.DefaultClient
	if opts.HTTPClient != nil {
		doer = opts.HTTPClient
	}
	return &Adapter{
		baseURL:  fmt.Sprintf("%s://%s:%d/webapi", scheme, cfg.Host, cfg.Port),
		login:    cfg.Login,
		password: cfg.Password,
		client:   doer,
		logger:   logging.NewComponentLogger(opts.Logger, "downloadstation").With(logging.String(logging.FieldClientID, cfg.ID)),
	}
}

// NewWithBaseURL constructs an adapter against an explicit webapi base URL.
func NewWithBaseURL(baseURL, login, password string, client HTTPDoer, logger *slog.Logger) *Adapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &Adapter{
		baseURL:  strings.TrimRight(baseURL, "/"),
		login:    login,
		password: password,
		client:   client,
		logger:   logging.NewComponentLogger(logger, "downloadstation"),
	}
}

// ensureSession runs the two-phase bootstrap when no session is held.
// Callers hold a.mu.
func (a *Adapter) ensureSession(ctx context.Context) error {
	if a.sid != "" {
		return nil
	}
	if a.apis == nil {
		fields := url.Values{
			"api":     {apiInfo},
			"method":  {"query"},
			"query":   {"ALL"},
			"version": {"1"},
		}
		var apis map[string]apiEntry
		if err := a.post(ctx, "query.cgi", categoryInfo, "query api info", fields, &apis); err != nil {
			return err
		}
		a.apis = apis
	}
	entry, err := a.api(apiAuth, "login")
	if err != nil {
		return err
	}
	fields := url.Values{
		"api":     {apiAuth},
		"method":  {"login"},
		"version": {strconv.Itoa(entry.MaxVersion)},
		"account": {a.login},
		"passwd":  {a.password},
		"session": {sessionName},
		"format":  {"sid"},
	}
	var auth struct {
		SID string `json:"sid"`
	}
	if err := a.post(ctx, entry.Path, categoryAuth, "login", fields, &auth); err != nil {
		return err
	}
	if auth.SID == "" {
		return &clients.Error{Vendor: vendorName, Operation: "login", Category: categoryAuth, Description: "empty session id"}
	}
	a.sid = auth.SID
	a.logger.Debug("download station session established")
	return nil
}

func (a *Adapter) api(name, operation string) (apiEntry, error) {
	entry, ok := a.apis[name]
	if !ok || entry.Path == "" {
		return apiEntry{}, &clients.Error{
			Vendor:      vendorName,
			Operation:   operation,
			Category:    categoryInfo,
			Code:        102,
			Description: describeError(categoryInfo, 102),
		}
	}
	return entry, nil
}

// taskCall performs an authenticated SYNO.DownloadStation.Task request,
// logging in again once when the session has expired.
func (a *Adapter) taskCall(ctx context.Context, operation, method string, extra url.Values, out any) error {
	for attempt := 0; ; attempt++ {
		if err := a.ensureSession(ctx); err != nil {
			return err
		}
		entry, err := a.api(apiTask, operation)
		if err != nil {
			return err
		}
		fields := url.Values{
			"api":     {apiTask},
			"method":  {method},
			"version": {strconv.Itoa(entry.MaxVersion)},
			"_sid":    {a.sid},
		}
		for k, v := range extra {
			fields[k] = v
		}
		err = a.post(ctx, entry.Path, categoryTask, operation, fields, out)
		if attempt == 0 && isSessionExpired(err) {
			a.logger.Info("download station session expired, logging in again")
			a.sid = ""
			continue
		}
		return err
	}
}

func isSessionExpired(err error) bool {
	var ce *clients.Error
	return errors.As(err, &ce) && ce.Category != categoryAuth && sessionExpired(ce.Code)
}

func (a *Adapter) post(ctx context.Context, path, category, operation string, fields url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/"+strings.TrimLeft(path, "/"), strings.NewReader(fields.Encode()))
	if err != nil {
		return &clients.Error{Vendor: vendorName, Operation: operation, Category: category, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req, category, operation, out)
}

func (a *Adapter) do(req *http.Request, category, operation string, out any) error {
	resp, err := a.client.Do(req)
	if err != nil {
		return &clients.Error{Vendor: vendorName, Operation: operation, Category: category, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return &clients.Error{Vendor: vendorName, Operation: operation, Category: category, Err: err}
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return &clients.Error{
			Vendor:      vendorName,
			Operation:   operation,
			Category:    category,
			Description: fmt.Sprintf("http status %d", resp.StatusCode),
		}
	}

	var envelope response
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &clients.Error{Vendor: vendorName, Operation: operation, Category: category, Description: "malformed response", Err: err}
	}
	if !envelope.Success {
		code := 0
		if envelope.Error != nil {
			code = envelope.Error.Code
		}
		return &clients.Error{
			Vendor:      vendorName,
			Operation:   operation,
			Category:    category,
			Code:        code,
			Description: describeError(category, code),
		}
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &clients.Error{Vendor: vendorName, Operation: operation, Category: category, Description: "malformed response data", Err: err}
	}
	return nil
}

// ListTasks returns every task that normalizes to a known status. Tasks that
// carry no hash cannot be matched to a release and are skipped.
func (a *Adapter) ListTasks(ctx context.Context) (map[string]clients.Status, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listTasksLocked(ctx)
}

func (a *Adapter) listTasksLocked(ctx context.Context) (map[string]clients.Status, error) {
	var list taskList
	extra := url.Values{"additional": {"detail,transfer"}}
	if err := a.taskCall(ctx, "list tasks", "list", extra, &list); err != nil {
		return nil, err
	}

	statuses := make(map[string]clients.Status, len(list.Tasks))
	ids := make(map[string]string, len(list.Tasks))
	var unhashed int
	for _, t := range list.Tasks {
		hash := strings.ToUpper(strings.TrimSpace(t.Additional.Detail.Hash))
		if hash == "" {
			unhashed++
			continue
		}
		ids[hash] = t.ID
		status, ok := clients.Normalize(t.Status, t.Size, t.Additional.Transfer.SizeDownloaded)
		if !ok {
			continue
		}
		statuses[hash] = status
	}
	a.taskIDs = ids
	if unhashed > 0 {
		a.logger.Debug("skipped tasks without hash", logging.Int("count", unhashed))
	}
	return statuses, nil
}

// resolveIDs maps hashes to task ids, refreshing the listing when a hash is
// not known yet. Callers hold a.mu.
func (a *Adapter) resolveIDs(ctx context.Context, operation string, hashes []string) (string, error) {
	lookup := func() ([]string, []string) {
		var ids, missing []string
		for _, h := range hashes {
			if id, ok := a.taskIDs[strings.ToUpper(strings.TrimSpace(h))]; ok {
				ids = append(ids, id)
			} else {
				missing = append(missing, h)
			}
		}
		return ids, missing
	}
	ids, missing := lookup()
	if len(missing) > 0 {
		if _, err := a.listTasksLocked(ctx); err != nil {
			return "", err
		}
		ids, missing = lookup()
	}
	if len(missing) > 0 {
		return "", &clients.Error{
			Vendor:      vendorName,
			Operation:   operation,
			Category:    categoryTask,
			Code:        404,
			Description: fmt.Sprintf("%s: %s", describeError(categoryTask, 404), strings.Join(missing, ",")),
		}
	}
	return strings.Join(ids, ","), nil
}

func (a *Adapter) control(ctx context.Context, operation, method string, hashes []string, extra url.Values) error {
	if len(hashes) == 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureSession(ctx); err != nil {
		return err
	}
	ids, err := a.resolveIDs(ctx, operation, hashes)
	if err != nil {
		return err
	}
	fields := url.Values{"id": {ids}}
	for k, v := range extra {
		fields[k] = v
	}
	return a.taskCall(ctx, operation, method, fields, nil)
}

// Start resumes tasks. Download Station has no forced start; force is ignored.
func (a *Adapter) Start(ctx context.Context, hashes []string, _ bool) error {
	return a.control(ctx, "start tasks", "resume", hashes, nil)
}

// Stop pauses tasks.
func (a *Adapter) Stop(ctx context.Context, hashes []string) error {
	return a.control(ctx, "stop tasks", "pause", hashes, nil)
}

// Remove deletes tasks and keeps their files. force_complete stays false; the
// task API has no way to delete downloaded data.
func (a *Adapter) Remove(ctx context.Context, hashes []string, deleteLocalData bool) error {
	if deleteLocalData {
		return fmt.Errorf("remove tasks with local data: %w", clients.ErrUnsupported)
	}
	extra := url.Values{"force_complete": {"false"}}
	return a.control(ctx, "remove tasks", "delete", hashes, extra)
}

// SetLabel is not offered by Download Station.
func (a *Adapter) SetLabel(context.Context, []string, string) error {
	return clients.ErrUnsupported
}

// AddTask uploads a torrent file as a new task saved under destPath. An empty
// destPath uses the default destination.
func (a *Adapter) AddTask(ctx context.Context, filePath, destPath string) error {
	const operation = "add task"
	data, err := os.ReadFile(filePath)
	if err != nil {
		return &clients.Error{Vendor: vendorName, Operation: operation, Category: categoryTask, Err: err}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for attempt := 0; ; attempt++ {
		if err := a.ensureSession(ctx); err != nil {
			return err
		}
		entry, err := a.api(apiTask, operation)
		if err != nil {
			return err
		}
		fields := map[string]string{
			"api":     apiTask,
			"method":  "create",
			"version": strconv.Itoa(entry.MaxVersion),
			"_sid":    a.sid,
		}
		if destPath != "" {
			fields["destination"] = strings.TrimLeft(destPath, "/")
		}
		req, err := a.uploadRequest(ctx, entry.Path, fields, filepath.Base(filePath), data)
		if err != nil {
			return &clients.Error{Vendor: vendorName, Operation: operation, Category: categoryTask, Err: err}
		}
		err = a.do(req, categoryTask, operation, nil)
		if attempt == 0 && isSessionExpired(err) {
			a.sid = ""
			continue
		}
		return err
	}
}

func (a *Adapter) uploadRequest(ctx context.Context, path string, fields map[string]string, name string, data []byte) (*http.Request, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	// The file part must follow the other fields.
	for _, key := range []string{"api", "version", "method", "_sid", "destination"} {
		value, ok := fields[key]
		if !ok {
			continue
		}
		if err := mw.WriteField(key, value); err != nil {
			return nil, err
		}
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/"+strings.TrimLeft(path, "/"), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

// Close logs out when a session is held.
func (a *Adapter) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sid == "" {
		return nil
	}
	entry, err := a.api(apiAuth, "logout")
	if err != nil {
		return err
	}
	fields := url.Values{
		"api":     {apiAuth},
		"method":  {"logout"},
		"version": {strconv.Itoa(entry.MaxVersion)},
		"session": {sessionName},
		"_sid":    {a.sid},
	}
	a.sid = ""
	return a.post(ctx, entry.Path, categoryAuth, "logout", fields, nil)
}
