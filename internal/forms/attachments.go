package forms

import (
	"bytes"
	"io"
	"mime/multipart"
	"path"
	"regexp"
	"sort"
	"strings"
)

// Upload is one file bound for a file field. Open may be called more than once.
type Upload struct {
	Field    string
	FileName string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

func UploadsFromMultipart(form *multipart.Form) []Upload {
	if form == nil {
		return nil
	}

	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var uploads []Upload
	for _, field := range fields {
		for _, fh := range form.File[field] {
			uploads = append(uploads, Upload{
				Field:    field,
				FileName: fh.Filename,
				Size:     fh.Size,
				Open: func() (io.ReadCloser, error) {
					return fh.Open()
				},
			})
		}
	}
	return uploads
}

func BytesUpload(field, fileName string, data []byte) Upload {
	return Upload{
		Field:    field,
		FileName: fileName,
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Attachments groups uploads by the file field they belong to.
type Attachments map[string][]Upload

// CollectAttachments binds uploads to the schema's file fields. A single
// file slot keeps the first file offered; a multi-file field keeps them all.
// Uploads naming an undeclared or non-file field are dropped.
func (e *Engine) CollectAttachments(uploads []Upload) Attachments {
	out := make(Attachments)
	for _, u := range uploads {
		if strings.TrimSpace(u.FileName) == "" {
			continue
		}

		f, ok := e.schema.Field(u.Field)
		if !ok || !f.IsFile() {
			continue
		}

		if f.Kind == KindFile && len(out[f.Name]) > 0 {
			continue
		}

		out[f.Name] = append(out[f.Name], u)
	}
	return out
}

// Names reports each field's file names so file fields can be validated
// like any other value.
func (a Attachments) Names() Values {
	out := make(Values, len(a))
	for field, uploads := range a {
		names := make([]string, 0, len(uploads))
		for _, u := range uploads {
			names = append(names, path.Base(u.FileName))
		}
		out[field] = strings.Join(names, ", ")
	}
	return out
}

func (a Attachments) Count() int {
	n := 0
	for _, uploads := range a {
		n += len(uploads)
	}
	return n
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeFileName strips directories and anything outside [A-Za-z0-9._-].
func SafeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Trim(unsafeFileChars.ReplaceAllString(name, "_"), "._")
	if name == "" {
		return "file"
	}
	return name
}
