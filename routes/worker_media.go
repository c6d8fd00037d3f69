package routes

import (
	"io"
	"mime/multipart"

	"github.com/gin-gonic/gin"

	"snapfix-server/services"
)

// maxBookingForm caps the whole booking request body.
const maxBookingForm = int64(services.MaxBookingImages)*services.MaxImageBytes + 1<<20

// bookingImages collects the "images" parts of a multipart booking request.
// Size and type checks happen in the booking service before anything is stored.
func bookingImages(c *gin.Context) ([]services.ImageUpload, error) {
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}

	headers := form.File["images"]
	uploads := make([]services.ImageUpload, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, imageUpload(fh))
	}
	return uploads, nil
}

func imageUpload(fh *multipart.FileHeader) services.ImageUpload {
	return services.ImageUpload{
		Filename: fh.Filename,
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
