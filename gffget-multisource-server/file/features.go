package file

import (
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/googlegenomics/gffget/gff"
	"github.com/googlegenomics/gffget/gffget-multisource-server/model"
	"github.com/googlegenomics/gffget/gffget-multisource-server/utils"
)

// NewFeaturesHandler builds a gin handler that answers region queries
// against GFF3 files stored under directory.  The response carries the
// matching records inline instead of a ticket.
func NewFeaturesHandler(directory string, period int) func(c *gin.Context) {
	return func(c *gin.Context) {
		if err := utils.ParseFormat(c.Query("format")); err != nil {
			c.String(400, "Error parsing format")
			return
		}

		region, err := utils.ParseRegion(c.Request.URL.Query())
		if err != nil {
			c.String(400, "Error parsing params")
			return
		}

		id := c.Param("id")
		if id == "" {
			c.String(400, "Error parsing params")
			return
		}

		name := directory + "/" + id + ".gff"
		if _, err := os.Stat(name); err != nil {
			name = directory + "/" + id + ".gff.gz"
		}

		f, err := gff.OpenPeriod(name, period)
		if err != nil {
			c.String(400, "Error opening the file")
			return
		}
		defer f.Close()

		start := region.Start
		if start == 0 {
			first, err := f.Index().First(region.Sequence)
			if err != nil {
				c.String(404, "Error processing reference name")
				return
			}
			start = first
		}
		end := region.End
		if end == 0 {
			end = math.MaxInt64
		}

		iter, err := f.Fetch(region.Sequence, start, end, c.Query("type"))
		if err != nil {
			c.String(404, "Error processing reference name")
			return
		}

		response := model.FeaturesResponse{Format: "GFF3"}
		response.Records = []model.Record{}
		for {
			record, err := iter.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				c.String(400, "Error reading records")
				return
			}
			response.Records = append(response.Records, model.FromGFF(record))
		}

		enc := json.NewEncoder(c.Writer)
		enc.SetEscapeHTML(false)
		c.Header("Content-Type", "application/json")
		c.Status(200)
		if err := enc.Encode(&response); err != nil {
			c.String(400, "Error generating result")
			return
		}
	}
}
