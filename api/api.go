// Copyright 2024 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api serves scan plan tickets over HTTP.  A ticket lists the
// compressed byte ranges a client must fetch and decode to see every record
// overlapping a region, so clients can run the fetches themselves, in
// parallel, against the data endpoint or the underlying store directly.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/googlegenomics/regionscan/bam"
	"github.com/googlegenomics/regionscan/genomics"
	"github.com/googlegenomics/regionscan/scan"
	"github.com/googlegenomics/regionscan/storage"
)

// Server plans region scans over BAM files held in an object store.  A name
// "id" resolves to the objects "id.bam" and "id.bam.bai".
type Server struct {
	store   storage.Store
	planner *scan.Planner
}

// NewServer returns a server over store.  A non-zero blockSizeLimit softly
// caps the compressed bytes of any single planned range.
func NewServer(store storage.Store, blockSizeLimit uint64) *Server {
	planner := scan.NewPlanner(scan.StoreLoader(store), bam.StoreNamer(store))
	planner.SizeLimit = blockSizeLimit
	return &Server{store: store, planner: planner}
}

// Register installs the server's routes on router.
func (s *Server) Register(router *gin.Engine) {
	router.GET("/plans/:id", s.plans)
	router.GET("/data/:id", s.data)
}

// PlanResponse is the JSON ticket returned by the plans endpoint.
type PlanResponse struct {
	Plan Plan `json:"plan"`
}

type Plan struct {
	Session string     `json:"session"`
	Format  string     `json:"format"`
	Region  string     `json:"region"`
	Ranges  []RangeURL `json:"ranges"`
}

// RangeURL locates one independently fetchable slice of the scan.
type RangeURL struct {
	URL string `json:"url"`

	// Start and End bound the compressed byte range; both are zero for a
	// whole-file entry.
	Start uint64 `json:"start,omitempty"`
	End   uint64 `json:"end,omitempty"`

	// VirtualStart addresses the first record within the range.
	VirtualStart string `json:"virtualStart,omitempty"`
}

func (s *Server) plans(c *gin.Context) {
	id := c.Param("id")
	if !validID(id) {
		c.String(http.StatusBadRequest, "invalid id %q", id)
		return
	}
	region, err := regionFromQuery(c)
	if err != nil {
		c.String(http.StatusBadRequest, "invalid region: %v", err)
		return
	}

	files := []scan.File{{Data: id + ".bam", Index: id + ".bam.bai"}}
	tasks, err := s.planner.Plan(c.Request.Context(), region, files)
	if err != nil {
		var unknown *scan.UnknownReferenceError
		switch {
		case errors.As(err, &unknown):
			c.String(http.StatusNotFound, "unknown reference %q", unknown.Name)
		case errors.Is(err, os.ErrNotExist):
			c.String(http.StatusNotFound, "no data named %q", id)
		default:
			c.String(http.StatusInternalServerError, "planning scan: %v", err)
		}
		return
	}

	var resp PlanResponse
	resp.Plan.Session = uuid.New().String()
	resp.Plan.Format = "BAM"
	resp.Plan.Region = region.String()
	resp.Plan.Ranges = make([]RangeURL, 0, len(tasks))
	for _, task := range tasks {
		entry := RangeURL{URL: "/data/" + id}
		if task.Range != nil {
			entry.Start = task.Range.Start
			entry.End = task.Range.End
			entry.VirtualStart = task.Start.String()
			entry.URL = fmt.Sprintf("/data/%s?start=%d&end=%d", id, task.Range.Start, task.Range.End)
		}
		resp.Plan.Ranges = append(resp.Plan.Ranges, entry)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) data(c *gin.Context) {
	id := c.Param("id")
	if !validID(id) {
		c.String(http.StatusBadRequest, "invalid id %q", id)
		return
	}
	start, err := parseOffset(c.Query("start"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid start: %v", err)
		return
	}
	end, err := parseOffset(c.Query("end"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid end: %v", err)
		return
	}

	length := int64(-1)
	if c.Query("end") != "" {
		if end <= start {
			c.String(http.StatusBadRequest, "empty byte range [%d, %d)", start, end)
			return
		}
		length = int64(end - start)
	}

	obj, err := s.store.Open(c.Request.Context(), id+".bam")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.String(http.StatusNotFound, "no data named %q", id)
		} else {
			c.String(http.StatusInternalServerError, "opening data: %v", err)
		}
		return
	}
	r, err := obj.NewRangeReader(c.Request.Context(), int64(start), length)
	if err != nil {
		c.String(http.StatusInternalServerError, "reading data: %v", err)
		return
	}
	defer r.Close()

	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, r); err != nil {
		c.Error(err)
	}
}

// validID rejects names that could escape the store's namespace.
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, "/\\") && !strings.Contains(id, "..")
}

func regionFromQuery(c *gin.Context) (genomics.Region, error) {
	region := genomics.Region{Name: c.Query("referenceName")}
	var err error
	if region.Start, err = parsePosition(c.Query("start")); err != nil {
		return genomics.Region{}, fmt.Errorf("bad start: %v", err)
	}
	if region.End, err = parsePosition(c.Query("end")); err != nil {
		return genomics.Region{}, fmt.Errorf("bad end: %v", err)
	}
	if region.Name == "" && !region.WholeReference() {
		return genomics.Region{}, fmt.Errorf("start and end require a reference name")
	}
	if region.End != 0 && region.End <= region.Start {
		return genomics.Region{}, fmt.Errorf("empty interval [%d, %d)", region.Start, region.End)
	}
	return region, nil
}

func parsePosition(value string) (uint32, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

func parseOffset(value string) (uint64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseUint(value, 10, 64)
}
