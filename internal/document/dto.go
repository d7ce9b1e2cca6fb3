package document

import (
	internal "github.com/frahmantamala/procurement-management/internal"
	"github.com/frahmantamala/procurement-management/internal/core/common/validation"
)

// maxFileSize caps uploads at 25 MiB; presigned uploads bypass the server so
// the cap is also enforced by bucket policy.
const maxFileSize = 25 << 20

// CreateDocumentDTO declares an intended upload. The file itself goes
// straight to object storage through the returned presigned URL.
type CreateDocumentDTO struct {
	DocumentType string `json:"document_type"`
	FileName     string `json:"file_name"`
	FileSize     int64  `json:"file_size"`
	FileType     string `json:"file_type"`
	Description  string `json:"description"`
}

func (dto CreateDocumentDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("document_type", dto.DocumentType).Required().OneOf(ValidTypes, internal.ErrCodeDocumentNotUploadable)
	v.Field("file_name", dto.FileName).Required().MaxLength(255)
	v.Field("description", dto.Description).MaxLength(1000)
	if err := v.Validate(); err != nil {
		return err
	}

	if dto.FileSize <= 0 || dto.FileSize > maxFileSize {
		return internal.NewValidationFieldError("file_size",
			"file size must be between 1 byte and 25 MiB", internal.ErrCodeValidationFailed)
	}
	if !AllowedFileType(dto.FileType) {
		return internal.NewValidationFieldError("file_type",
			"file type must be PDF, JPEG or PNG", internal.ErrCodeValidationFailed)
	}
	return nil
}

// UploadTicket is the response to a document creation: the pending record
// plus the presigned URL the client PUTs the file to.
type UploadTicket struct {
	Document  *Document `json:"document"`
	UploadURL string    `json:"upload_url"`
}

// DownloadTicket carries a short-lived presigned GET URL.
type DownloadTicket struct {
	Document    *Document `json:"document"`
	DownloadURL string    `json:"download_url"`
}
