// Package storeerr classifies failures of the remote stores (Postgres, the
// orders service, the push service) into a fixed code table with
// user-facing messages.
package storeerr

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/lib/pq"
)

type Code string

const (
	CodePermissionDenied     Code = "permission-denied"
	CodeUnavailable          Code = "unavailable"
	CodeNetworkRequestFailed Code = "network-request-failed"
	CodeQuotaExceeded        Code = "quota-exceeded"
	CodeInternal             Code = "internal"
	CodeInvalidArgument      Code = "invalid-argument"
	CodeNotFound             Code = "not-found"
	CodeAlreadyExists        Code = "already-exists"
	CodeCancelled            Code = "cancelled"
	CodeDeadlineExceeded     Code = "deadline-exceeded"
	CodeResourceExhausted    Code = "resource-exhausted"
	CodeFailedPrecondition   Code = "failed-precondition"
	CodeAborted              Code = "aborted"
	CodeOutOfRange           Code = "out-of-range"
	CodeUnimplemented        Code = "unimplemented"
	CodeDataLoss             Code = "data-loss"
	CodeUnknown              Code = "unknown"
)

const fallbackMessage = "Đã có lỗi xảy ra. Vui lòng thử lại."

var messages = map[Code]string{
	CodePermissionDenied:     "Bạn không có quyền thực hiện thao tác này.",
	CodeUnavailable:          "Dịch vụ tạm thời không khả dụng. Vui lòng thử lại.",
	CodeNetworkRequestFailed: "Lỗi kết nối mạng. Vui lòng kiểm tra kết nối internet.",
	CodeQuotaExceeded:        "Đã vượt quá giới hạn sử dụng. Vui lòng thử lại sau.",
	CodeInternal:             "Lỗi hệ thống nội bộ. Vui lòng thử lại sau.",
	CodeInvalidArgument:      "Dữ liệu không hợp lệ.",
	CodeNotFound:             "Không tìm thấy dữ liệu yêu cầu.",
	CodeAlreadyExists:        "Dữ liệu đã tồn tại.",
	CodeCancelled:            "Thao tác đã bị hủy.",
	CodeDeadlineExceeded:     "Thao tác mất quá nhiều thời gian. Vui lòng thử lại.",
	CodeResourceExhausted:    "Tài nguyên đã cạn kiệt. Vui lòng thử lại sau.",
	CodeFailedPrecondition:   "Điều kiện thực hiện không đáp ứng.",
	CodeAborted:              "Thao tác đã bị hủy bỏ.",
	CodeOutOfRange:           "Giá trị nằm ngoài phạm vi cho phép.",
	CodeUnimplemented:        "Tính năng chưa được triển khai.",
	CodeDataLoss:             "Mất dữ liệu. Vui lòng liên hệ hỗ trợ.",
}

// Message returns the localized text for code, or the generic fallback.
func (c Code) Message() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return fallbackMessage
}

// Error is a classified remote failure.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap classifies err and tags it with the operation that failed.
// A nil err stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return &Error{Code: se.Code, Op: op, Err: err}
	}
	return &Error{Code: Classify(err), Op: op, Err: err}
}

// Classify maps err onto the code table.
func Classify(err error) Code {
	if err == nil {
		return ""
	}

	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}

	switch {
	case errors.Is(err, context.Canceled):
		return CodeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return CodeDeadlineExceeded
	case errors.Is(err, sql.ErrNoRows):
		return CodeNotFound
	case errors.Is(err, sql.ErrConnDone):
		return CodeUnavailable
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fromSQLState(string(pqErr.Code))
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CodeDeadlineExceeded
		}
		return CodeNetworkRequestFailed
	}

	return CodeUnknown
}

// Message is the localized text for err.
func Message(err error) string {
	return Classify(err).Message()
}

func fromSQLState(state string) Code {
	switch state {
	case "23505":
		return CodeAlreadyExists
	case "42501":
		return CodePermissionDenied
	case "57014":
		return CodeCancelled
	case "40001", "40P01":
		return CodeAborted
	case "22003", "22008":
		return CodeOutOfRange
	case "53300":
		return CodeQuotaExceeded
	case "57P01", "57P02", "57P03":
		return CodeUnavailable
	}

	switch {
	case strings.HasPrefix(state, "08"):
		return CodeUnavailable
	case strings.HasPrefix(state, "22"), strings.HasPrefix(state, "23"):
		return CodeInvalidArgument
	case strings.HasPrefix(state, "53"):
		return CodeResourceExhausted
	case strings.HasPrefix(state, "55"):
		return CodeFailedPrecondition
	case strings.HasPrefix(state, "0A"):
		return CodeUnimplemented
	case strings.HasPrefix(state, "XX"):
		return CodeDataLoss
	}
	return CodeInternal
}

// HTTPStatus is the response status a service uses for code.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidArgument, CodeOutOfRange:
		return http.StatusBadRequest
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeAborted:
		return http.StatusConflict
	case CodeFailedPrecondition:
		return http.StatusPreconditionFailed
	case CodeQuotaExceeded, CodeResourceExhausted:
		return http.StatusTooManyRequests
	case CodeCancelled:
		return 499
	case CodeUnimplemented:
		return http.StatusNotImplemented
	case CodeUnavailable, CodeNetworkRequestFailed:
		return http.StatusServiceUnavailable
	case CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// FromHTTPStatus classifies a non-2xx response from a remote service.
func FromHTTPStatus(status int) Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeInvalidArgument
	case http.StatusUnauthorized, http.StatusForbidden:
		return CodePermissionDenied
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeAlreadyExists
	case http.StatusPreconditionFailed:
		return CodeFailedPrecondition
	case http.StatusTooManyRequests:
		return CodeResourceExhausted
	case 499:
		return CodeCancelled
	case http.StatusNotImplemented:
		return CodeUnimplemented
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return CodeUnavailable
	case http.StatusGatewayTimeout:
		return CodeDeadlineExceeded
	}
	if status >= 500 {
		return CodeInternal
	}
	return CodeUnknown
}

// FromResponse turns a non-2xx response into an *Error. The service's
// {"code": ...} field wins over the status code when present.
func FromResponse(op string, resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
		Code  Code   `json:"code"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)

	code := body.Code
	if _, known := messages[code]; !known && code != CodeUnknown {
		code = FromHTTPStatus(resp.StatusCode)
	}

	msg := body.Error
	if msg == "" {
		msg = resp.Status
	}
	return &Error{Code: code, Op: op, Err: errors.New(msg)}
}
