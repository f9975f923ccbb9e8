// Copyright 2021-2024 EMQ Technologies Co., Ltd.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conf

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	etcDir     = "etc"
	dataDir    = "data"
	logDir     = "log"
	KqlBaseKey = "KqlBaseKey"
)

var LoadFileType = "relative"

var AbsoluteMapping = map[string]string{
	etcDir:  "/etc/kql",
	dataDir: "/var/lib/kql/data",
	logDir:  "/var/log/kql",
}

func GetConfLoc() (string, error) {
	return GetLoc(etcDir)
}

func GetDataLoc() (string, error) {
	if IsTesting {
		dataDir, err := GetLoc(dataDir)
		if err != nil {
			return "", err
		}
		d := path.Join(dataDir, "test")
		if _, err := os.Stat(d); os.IsNotExist(err) {
			err = os.MkdirAll(d, 0o755)
			if err != nil {
				return "", err
			}
		}
		return d, nil
	}
	return GetLoc(dataDir)
}

func GetLogLoc() (string, error) {
	return GetLoc(logDir)
}

func absolutePath(loc string) (dir string, err error) {
	for relDir, absoluteDir := range AbsoluteMapping {
		if strings.HasPrefix(loc, relDir) {
			dir = strings.Replace(loc, relDir, absoluteDir, 1)
			break
		}
	}
	if len(dir) == 0 {
		return "", fmt.Errorf("location %s is not allowed for absolute mode", loc)
	}
	return dir, nil
}

// GetLoc subdir must be a relative path
func GetLoc(subdir string) (string, error) {
	switch LoadFileType {
	case "relative":
		return relativePath(subdir)
	case "absolute":
		return absolutePath(subdir)
	}
	return "", fmt.Errorf("Unrecognized loading method.")
}

// relativePath looks up subdir in the base folder and then its ancestors.
func relativePath(subdir string) (dir string, err error) {
	dir, err = os.Getwd()
	if err != nil {
		return "", err
	}

	if base := os.Getenv(KqlBaseKey); base != "" {
		Log.Infof("Specified kql base folder at location %s.", base)
		dir = base
	}
	confDir := path.Join(dir, subdir)
	if _, err := os.Stat(confDir); os.IsNotExist(err) {
		lastdir := dir
		for len(dir) > 0 {
			dir = filepath.Dir(dir)
			if lastdir == dir {
				break
			}
			confDir = path.Join(dir, subdir)
			if _, err := os.Stat(confDir); os.IsNotExist(err) {
				lastdir = dir
				continue
			}
			return confDir, nil
		}
	} else {
		return confDir, nil
	}

	return "", fmt.Errorf("dir %s not found, please make sure it is created.", confDir)
}
