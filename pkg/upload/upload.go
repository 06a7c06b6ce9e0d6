// Package upload holds the file-upload state model shared by the
// FileUploadField component, the file-upload page controller and the
// uploader service client: upload/file status enums, the collaborator
// response types and the validation schemas for persisted file items.
package upload

import "github.com/aretw0/arbor/pkg/schema"

// UploadStatus is the lifecycle of one upload slot at the uploader
// service.
type UploadStatus string

const (
	UploadInitiated UploadStatus = "initiated"
	UploadPending   UploadStatus = "pending"
	UploadReady     UploadStatus = "ready"
)

// FileStatus is the scan outcome of one uploaded file.
type FileStatus string

const (
	FileComplete FileStatus = "complete"
	FilePending  FileStatus = "pending"
	FileRejected FileStatus = "rejected"
)

// InitiateResponse is the uploader's answer to a new upload request.
type InitiateResponse struct {
	UploadID  string `json:"uploadId"`
	UploadURL string `json:"uploadUrl"`
}

// StatusResponse is the uploader's report for one upload.
type StatusResponse struct {
	UploadStatus          UploadStatus `json:"uploadStatus"`
	Metadata              Metadata     `json:"metadata"`
	Form                  StatusForm   `json:"form"`
	NumberOfRejectedFiles int          `json:"numberOfRejectedFiles,omitempty"`
}

type Metadata struct {
	RetrievalKey string `json:"retrievalKey"`
}

type StatusForm struct {
	File FileDetail `json:"file"`
}

type FileDetail struct {
	FileID        string     `json:"fileId"`
	Filename      string     `json:"filename"`
	ContentLength float64    `json:"contentLength"`
	FileStatus    FileStatus `json:"fileStatus"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
}

// ToState converts a status response into the map shape persisted in
// session state, which is what the item schemas validate.
func (s StatusResponse) ToState() map[string]any {
	file := map[string]any{
		"fileId":        s.Form.File.FileID,
		"filename":      s.Form.File.Filename,
		"contentLength": s.Form.File.ContentLength,
		"fileStatus":    string(s.Form.File.FileStatus),
	}
	if s.Form.File.ErrorMessage != "" {
		file["errorMessage"] = s.Form.File.ErrorMessage
	}
	return map[string]any{
		"uploadStatus":          string(s.UploadStatus),
		"metadata":              map[string]any{"retrievalKey": s.Metadata.RetrievalKey},
		"form":                  map[string]any{"file": file},
		"numberOfRejectedFiles": float64(s.NumberOfRejectedFiles),
	}
}

// fileSchema covers the fields every file report carries.
func fileSchema(statuses ...any) *schema.Object {
	return schema.NewObject().
		Keys("fileId", schema.String().UUID().Required()).
		Keys("filename", schema.String().Required()).
		Keys("contentLength", schema.Number().Required()).
		Keys("fileStatus", schema.String().Required().Valid(statuses...).
			Messages(map[schema.Kind]string{
				schema.KindOnly: "The selected file has not fully uploaded",
			})).
		Keys("errorMessage", schema.String().Optional())
}

// TempItemSchema validates an in-flight file item: any terminal or
// pending file status is acceptable while the page is still collecting.
func TempItemSchema() *schema.Object {
	return itemSchema(
		schema.String().Required().Valid(string(UploadReady), string(UploadPending)),
		fileSchema(string(FileComplete), string(FileRejected), string(FilePending)),
		schema.Number().Optional(),
	)
}

// FormItemSchema validates a submitted file item: only fully scanned,
// accepted files count.
func FormItemSchema() *schema.Object {
	return itemSchema(
		schema.String().Required().Valid(string(UploadReady)),
		fileSchema(string(FileComplete)),
		schema.Number().Required().Valid(float64(0)),
	)
}

func itemSchema(uploadStatus *schema.Field, file *schema.Object, rejected *schema.Field) *schema.Object {
	status := schema.NewObject().
		Keys("uploadStatus", uploadStatus).
		Keys("metadata", schema.ObjectField(schema.NewObject().
			Keys("retrievalKey", schema.String().Email().Required())).Required()).
		Keys("form", schema.ObjectField(schema.NewObject().
			Keys("file", schema.ObjectField(file).Required())).Required()).
		Keys("numberOfRejectedFiles", rejected)
	return schema.NewObject().
		Keys("uploadId", schema.String().UUID().Required()).
		Keys("status", schema.ObjectField(status).Required())
}

// ItemUploadID reads the uploadId of a persisted file item.
func ItemUploadID(item map[string]any) string {
	id, _ := item["uploadId"].(string)
	return id
}

// ItemFile digs out the file detail map of a persisted item, or nil.
func ItemFile(item map[string]any) map[string]any {
	status, _ := item["status"].(map[string]any)
	form, _ := status["form"].(map[string]any)
	file, _ := form["file"].(map[string]any)
	return file
}

// ItemFileStatus reads the file status of a persisted item.
func ItemFileStatus(item map[string]any) FileStatus {
	file := ItemFile(item)
	s, _ := file["fileStatus"].(string)
	return FileStatus(s)
}

// ItemFileID reads the scanned file id of a persisted item.
func ItemFileID(item map[string]any) string {
	file := ItemFile(item)
	id, _ := file["fileId"].(string)
	return id
}

// ItemFilename reads the original filename of a persisted item.
func ItemFilename(item map[string]any) string {
	file := ItemFile(item)
	name, _ := file["filename"].(string)
	return name
}
