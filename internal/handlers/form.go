package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"

	"social-posts-backend/internal/storage"
)

const multipartMemory = 1 << 20

// formData is a request body decoded from JSON, urlencoded or multipart form
type formData struct {
	values map[string]string
	file   *storage.Upload
	close  func()
}

func (f *formData) get(key string) string {
	return f.values[key]
}

// readForm decodes the request body according to its Content-Type. fileField
// names the optional multipart file; the body is capped at maxBytes. The
// caller must call close once the upload has been consumed.
func readForm(w http.ResponseWriter, r *http.Request, maxBytes int64, fileField string) (*formData, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	form := &formData{values: make(map[string]string), close: func() {}}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, err
		}
		for key, value := range body {
			if s, ok := value.(string); ok {
				form.values[key] = s
			}
		}

	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, err
		}
		for key, values := range r.MultipartForm.Value {
			if len(values) > 0 {
				form.values[key] = values[0]
			}
		}
		if err := form.attach(r.MultipartForm, fileField); err != nil {
			r.MultipartForm.RemoveAll()
			return nil, err
		}

	default:
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		for key := range r.PostForm {
			form.values[key] = r.PostForm.Get(key)
		}
	}
	return form, nil
}

func (f *formData) attach(mf *multipart.Form, fileField string) error {
	f.close = func() { mf.RemoveAll() }
	if fileField == "" || len(mf.File[fileField]) == 0 {
		return nil
	}

	header := mf.File[fileField][0]
	if header.Filename == "" && header.Size == 0 {
		return nil
	}
	file, err := header.Open()
	if err != nil {
		return err
	}

	f.file = &storage.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
	f.close = func() {
		file.Close()
		mf.RemoveAll()
	}
	return nil
}

// respondFormError reports a body that could not be decoded
func respondFormError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, msgFileTooLarge, http.StatusRequestEntityTooLarge)
		return
	}
	respondError(w, msgInvalidBody, http.StatusBadRequest)
}
