package fetchkit

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/textproto"
)

// FormBody is a multipart/form-data request body. The encoder produces the
// boundary parameter, so the pipeline leaves the Content-Type header alone
// for this variant.
type FormBody struct {
	// Fields are simple key-value form fields.
	Fields map[string]string
	// Files are file upload fields.
	Files []FileField
}

// FileField is a file to upload in a multipart request.
type FileField struct {
	// FieldName is the form field name (e.g., "file", "attachment").
	FieldName string
	// FileName is the file name sent to the server.
	FileName string
	// ContentType is the MIME type. If empty, application/octet-stream is used.
	ContentType string
	// Data is the file content. Used if Reader is nil.
	Data []byte
	// Reader is an alternative to Data for large files.
	Reader io.Reader
}

// encode builds the multipart body and returns the reader and the
// boundary-bearing content type.
func (f *FormBody) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range f.Fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	for _, file := range f.Files {
		var part io.Writer
		var err error

		if file.ContentType != "" {
			header := make(textproto.MIMEHeader)
			header.Set("Content-Disposition",
				`form-data; name="`+escapeQuotes(file.FieldName)+`"; filename="`+escapeQuotes(file.FileName)+`"`)
			header.Set("Content-Type", file.ContentType)
			part, err = w.CreatePart(header)
		} else {
			part, err = w.CreateFormFile(file.FieldName, file.FileName)
		}
		if err != nil {
			return nil, "", err
		}

		if file.Data != nil {
			if _, err := part.Write(file.Data); err != nil {
				return nil, "", err
			}
		} else if file.Reader != nil {
			if _, err := io.Copy(part, file.Reader); err != nil {
				return nil, "", err
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}

// escapeQuotes escapes quotes and backslashes in header values.
func escapeQuotes(s string) string {
	var buf bytes.Buffer
	for _, b := range []byte(s) {
		if b == '"' || b == '\\' {
			buf.WriteByte('\\')
		}
		buf.WriteByte(b)
	}
	return buf.String()
}
