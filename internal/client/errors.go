package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// ErrorKind classifies a failed operation for the operator.
type ErrorKind int

const (
	// KindValidation is raised locally, before any request is sent.
	KindValidation ErrorKind = iota + 1
	// KindServer covers rejected requests and transport failures.
	KindServer
	// KindAuth means the token is missing or expired (HTTP 401).
	KindAuth
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindAuth:
		return "auth"
	}
	return "unknown"
}

// Messages shown when the server gives no usable detail.
const (
	msgGenericFailure = "حدث خطأ أثناء تنفيذ العملية"
	msgLoadFailure    = "فشل في تحميل بيانات الاستفادات"
	msgReauth         = "انتهت صلاحية الجلسة، يرجى تسجيل الدخول مرة أخرى"
	msgBadCredentials = "البريد الإلكتروني أو كلمة المرور غير صحيحة"
	msgReasonRequired = "يرجى اختيار سبب الإلغاء"
	msgFamilyRequired = "يرجى اختيار العائلة"
	msgFamilyNotFound = "العائلة المختارة ليست ضمن العائلات المتاحة"
	msgActionNotValid = "هذا الإجراء غير متاح لحالة الاستفادة الحالية"
	msgNoSelection    = "لم يتم اختيار أي استفادة"
	msgNotDeletable   = "لا يمكن حذف إلا الاستفادات المفتوحة غير المرتبطة بعائلة"
	msgCancelledLink  = "لا يمكن ربط استفادة ملغاة بعائلة"
	msgReasonName     = "اسم السبب مطلوب"
	msgFamilyFields   = "رقم العائلة واسمها وعدد أفرادها مطلوبة"
)

// Error is returned by every client operation that fails.  Message is
// ready to show: the server's own wording when it sent one, otherwise an
// Arabic fallback.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a client *Error of kind k.
func IsKind(err error, k ErrorKind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == k
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func transportError(err error) *Error {
	return &Error{Kind: KindServer, Message: msgGenericFailure, Err: err}
}

// fromResponse builds the error for a non-2xx response.  The server detail
// is read from "detail" first, then "error".
func fromResponse(resp *resty.Response, fallback string) *Error {
	status := resp.StatusCode()
	if status == http.StatusUnauthorized {
		return &Error{Kind: KindAuth, Status: status, Message: msgReauth}
	}
	msg := serverDetail(resp.Body())
	if msg == "" {
		msg = fallback
	}
	return &Error{Kind: KindServer, Status: status, Message: msg}
}

func serverDetail(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"detail", "error"} {
		if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
