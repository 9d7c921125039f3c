package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// WindowItem — элемент window-ответа.
type WindowItem struct {
	SubjectID string `json:"subjectId"`
	DueAt     string `json:"dueAt"`
}

// SeedResponse — созданный item.
type SeedResponse struct {
	ID        string `json:"id"`
	SubjectID string `json:"subjectId"`
	DueAt     string `json:"dueAt"`
	CreatedAt string `json:"createdAt"`
}

// StatusResponse — состояние сервиса.
type StatusResponse struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Status    string `json:"status"`
	Storage   string `json:"storage"`
	Messaging string `json:"messaging"`
	Uptime    string `json:"uptime"`
}

// --- Request types ---

// SeedRequest — ручной seed.
type SeedRequest struct {
	SubjectID string `json:"subjectId"`
	DueAt     string `json:"dueAt,omitempty"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для API планировщика.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Seed вставляет due item вручную.
func (c *Client) Seed(subjectID, dueAt string) (*SeedResponse, error) {
	req := SeedRequest{SubjectID: subjectID, DueAt: dueAt}
	var item SeedResponse
	err := c.post("/api/v1/seed", req, &item)
	return &item, err
}

// Window возвращает items в окне [now, now+horizonSec].
// Пустые параметры означают серверные дефолты.
func (c *Client) Window(now string, horizonSec int) ([]WindowItem, error) {
	params := url.Values{}
	if now != "" {
		params.Set("now", now)
	}
	if horizonSec > 0 {
		params.Set("horizon_seconds", strconv.Itoa(horizonSec))
	}

	var items []WindowItem
	err := c.list("/api/v1/schedule/window", params, &items)
	return items, err
}

// Today возвращает items, due в ближайшие 24 часа.
func (c *Client) Today() ([]WindowItem, error) {
	var items []WindowItem
	err := c.list("/api/v1/schedule/today", nil, &items)
	return items, err
}

// Status возвращает состояние сервиса.
func (c *Client) Status() (*StatusResponse, error) {
	var status StatusResponse
	err := c.get("/api/v1/status", &status)
	return &status, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

// doData выполняет запрос и декодирует {"data": ...} ответ.
func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkError(resp); err != nil {
		return err
	}

	var wrapper dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if result != nil {
		if err := json.Unmarshal(wrapper.Data, result); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}

	return nil
}

// list выполняет GET и декодирует {"data": [...], "total": N} ответ.
func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkError(resp); err != nil {
		return err
	}

	var wrapper listResponse
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if err := json.Unmarshal(wrapper.Data, result); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}

	return nil
}

// do выполняет HTTP запрос с JSON телом.
func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}

	return resp, nil
}

// checkError разбирает ответ с ошибкой API.
func checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var errResp errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Errorf("%s: %s", errResp.Error.Code, errResp.Error.Message)
	}

	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}
