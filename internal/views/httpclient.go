package views

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/staffdesk/employee-api/internal/api"
	"github.com/staffdesk/employee-api/internal/api/employee"
)

var _ EmployeeClient = (*HTTPEmployeeClient)(nil)

// HTTPEmployeeClient is the EmployeeClient over the REST surface. The bearer
// token and the modifiedBy attribution are fixed per client instance: one
// client per logged-in session.
type HTTPEmployeeClient struct {
	baseURL    string
	token      string
	modifiedBy string
	http       *http.Client
}

func NewHTTPEmployeeClient(baseURL, token, modifiedBy string, httpClient *http.Client) *HTTPEmployeeClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPEmployeeClient{
		baseURL:    baseURL,
		token:      token,
		modifiedBy: modifiedBy,
		http:       httpClient,
	}
}

func (c *HTTPEmployeeClient) Register(ctx context.Context, req employee.RegisterRequest) (int, error) {
	var resp employee.RegisterResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/employees/register", req, &resp); err != nil {
		return 0, err
	}
	return resp.EmployeeID, nil
}

func (c *HTTPEmployeeClient) GetByID(ctx context.Context, id int) (*employee.Employee, error) {
	var emp employee.Employee
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/employees/"+strconv.Itoa(id), nil, &emp); err != nil {
		return nil, err
	}
	return &emp, nil
}

func (c *HTTPEmployeeClient) GetAll(ctx context.Context) ([]employee.Employee, error) {
	var emps []employee.Employee
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/employees", nil, &emps); err != nil {
		return nil, err
	}
	return emps, nil
}

func (c *HTTPEmployeeClient) Update(ctx context.Context, id int, req employee.UpdateEmployeeRequest) (int, error) {
	path := "/api/v1/employees/" + strconv.Itoa(id)
	if c.modifiedBy != "" {
		path += "?modifiedBy=" + url.QueryEscape(c.modifiedBy)
	}
	var resp employee.UpdateResponse
	if err := c.doJSON(ctx, http.MethodPut, path, req, &resp); err != nil {
		return 0, err
	}
	return resp.UpdatedCount, nil
}

func (c *HTTPEmployeeClient) UploadImage(ctx context.Context, id int, filename string, content io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build multipart form: %w", err)
	}
	if _, err := io.Copy(fw, content); err != nil {
		return "", fmt.Errorf("copy image content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finalize multipart form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/employees/"+strconv.Itoa(id)+"/image", &buf)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(httpReq)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer httpResp.Body.Close()

	if err := statusToError(httpResp.StatusCode); err != nil {
		return "", err
	}
	var resp employee.ImageResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", fmt.Errorf("decode image response: %w", err)
	}
	return resp.ProfileImage, nil
}

func (c *HTTPEmployeeClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := statusToError(resp.StatusCode); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

func (c *HTTPEmployeeClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func statusToError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return api.ErrUnauthenticated
	case code == http.StatusForbidden:
		return api.ErrForbidden
	case code == http.StatusNotFound:
		return api.ErrNotFound
	case code == http.StatusConflict:
		return api.ErrConflict
	case code == http.StatusBadRequest:
		return api.ErrValidation
	default:
		return fmt.Errorf("%w: unexpected status %d", api.ErrInternal, code)
	}
}
