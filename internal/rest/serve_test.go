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


package rest

import (
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
)

func init() { gin.SetMode(gin.TestMode) }

func do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req:=httptest.NewRequest(method, path, strings.NewReader(body))
	rec:=httptest.NewRecorder()
	NewRouter().ServeHTTP(rec, req)
	return rec
}

func TestPingAndConfig(t *testing.T) {
	if rec:=do(t, "GET", "/api/v1/ping", ""); rec.Code!=http.StatusOK || !strings.Contains(rec.Body.String(), "pong") {
		t.Errorf("ping %d %s", rec.Code, rec.Body)
	}
	rec:=do(t, "GET", "/api/v1/config", "")
	if rec.Code!=http.StatusOK || !strings.Contains(rec.Body.String(), `"extensions":[".obf",".msr"]`) {
		t.Errorf("config %d %s", rec.Code, rec.Body)
	}
}

func TestProcessRejectsBadRequests(t *testing.T) {
	bodies:=map[string]string{
		"absolute": `{"input": "/etc"}`,
		"parent":   `{"input": "../data"}`,
		"output":   `{"input": "data", "output": "../out"}`,
		"syntax":   `{"input": `,
		"invalid":  `{"input": "data", "projection": "sum"}`,
	}
	for name, body:=range bodies {
		if rec:=do(t, "POST", "/api/v1/process", body); rec.Code!=http.StatusBadRequest {
			t.Errorf("%s: status %d; want 400", name, rec.Code)
		}
	}
}

func TestProcessStreamsSummary(t *testing.T) {
	dir:=t.TempDir()
	t.Chdir(dir)
	img:=image.NewGray(image.Rect(0, 0, 8, 8))
	for i:=range img.Pix { img.Pix[i]=uint8(i) }
	if err:=os.Mkdir("data", 0755); err!=nil { t.Fatal(err) }
	if err:=imaging.Save(img, filepath.Join("data", "cell.png")); err!=nil { t.Fatal(err) }

	rec:=do(t, "POST", "/api/v1/process", `{"input": "data", "extensions": [".png"], "workers": 1}`)
	body:=rec.Body.String()
	if rec.Code!=http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("status %d type %s body %s", rec.Code, rec.Header().Get("Content-Type"), body)
	}
	if !strings.Contains(body, "Files processed 1 skipped 0") { t.Errorf("body %s", body) }
	if _, err:=os.Stat(filepath.Join(dir, "data", "tifs", "cell_cell_contr-enh.tiff")); err!=nil { t.Error(err) }
}

func TestIsPathAllowed(t *testing.T) {
	for p, want:=range map[string]bool{"data": true, "a/b": true, "": true, "/abs": false, "a/../b": false} {
		if got:=isPathAllowed(p); got!=want { t.Errorf("isPathAllowed(%q)=%v; want %v", p, got, want) }
	}
}
