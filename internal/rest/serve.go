// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


// Package rest exposes batch processing over HTTP.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/mlnoga/stedlight/internal/config"
	logpkg "github.com/mlnoga/stedlight/internal/log"
	"github.com/mlnoga/stedlight/internal/pipeline"
)

// Creates the router with all API routes
func NewRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET ("/ping",    getPing)
			v1.GET ("/config",  getConfig)
			v1.POST("/process", postProcess)
		}
	}
	return r
}

// Serves the API on the given address until the listener fails
func Serve(addr string) error {
	logpkg.Get().Info().Msgf("Serving API on %s", addr)
	return NewRouter().Run(addr)
}

func getPing(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}

func getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, config.Default())
}

// Returns true if a path is considered safe, i.e. not an absolute path,
// and doesn't contain the ".." characters to change to a parent directory
func isPathAllowed(p string) bool {
	if filepath.IsAbs(p) { return false }          // relative paths only
	if strings.Contains(p, "..") { return false }  // no going outside the tree
	return true
}

// Writes each log line to the response and flushes it, so clients can follow progress
type flushWriter struct {
	mutex  sync.Mutex
	w      gin.ResponseWriter
}

func (fw *flushWriter) Write(p []byte) (int, error) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	n, err:=fw.w.Write(p)
	fw.w.Flush()
	return n, err
}

// Runs a batch with the posted configuration, streaming the log as plain text.
// Defaults apply to absent keys
func postProcess(c *gin.Context) {
	cfg:=config.Default()
	raw, err:=c.GetRawData()
	if err==nil { err=cfg.Unmarshal(raw, true) }
	if err==nil { err=cfg.Validate() }
	if err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, p:=range []string{cfg.Input, cfg.Output, cfg.Subdirs} {
		if !isPathAllowed(p) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("path '%s' outside current directory tree", p)})
			return
		}
	}
	cfg.Log=""

	logWriter := c.Writer
	header := logWriter.Header()
	header.Set("Content-Type", "text/plain")
	logWriter.WriteHeader(http.StatusOK)

	fw:=&flushWriter{w: logWriter}
	log:=logpkg.New(fw)
	summary, err:=pipeline.Run(requestContext(c), cfg, &log)
	if summary!=nil { fmt.Fprintf(fw, "%s\n", summary) }
	if err!=nil { fmt.Fprintf(fw, "error: %s\n", err.Error()) }
}

func requestContext(c *gin.Context) context.Context {
	if c.Request!=nil { return c.Request.Context() }
	return context.Background()
}
