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


package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesPlainText(t *testing.T) {
	var buf bytes.Buffer
	l:=New(&buf)
	l.Info().Int("id", 3).Msgf("%d: Stretched", 3)
	if s:=buf.String(); !strings.Contains(s, "3: Stretched") || !strings.Contains(s, "id=3") || strings.Contains(s, "\x1b[") {
		t.Errorf("got %q", s)
	}
}

func TestLogAlsoToFile(t *testing.T) {
	fileName:=filepath.Join(t.TempDir(), "run.log")
	if err:=LogAlsoToFile(fileName); err!=nil { t.Fatal(err) }
	Get().Info().Msg("written to both")
	Sync()
	b, err:=os.ReadFile(fileName)
	if err!=nil { t.Fatal(err) }
	if !strings.Contains(string(b), "written to both") { t.Errorf("log file holds %q", b) }
}

func TestSetLevel(t *testing.T) {
	if err:=SetLevel("loud"); err==nil { t.Errorf("accepted unknown level") }
	if err:=SetLevel("info"); err!=nil { t.Error(err) }
}
