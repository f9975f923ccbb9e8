// Copyright 2024 EMQ Technologies Co., Ltd.
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

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/lf-edge/kql/internal/conf"
	"github.com/lf-edge/kql/internal/server"
)

var (
	Version      = "unknown"
	LoadFileType = "relative"
)

func main() {
	conf.LoadFileType = LoadFileType
	app := cli.NewApp()
	app.Name = "kqld"
	app.Usage = "streaming sql engine over a partitioned log"
	app.Version = Version
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "loadFileType",
			Value: LoadFileType,
			Usage: "relative or absolute, how to locate the etc, data and log dirs",
		},
	}
	app.Before = func(c *cli.Context) error {
		conf.LoadFileType = c.GlobalString("loadFileType")
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:  "serve",
			Usage: "serve the restful api",
			Action: func(c *cli.Context) error {
				server.StartUp(Version, "")
				return nil
			},
		},
		{
			Name:  "exec",
			Usage: "exec -f file.sql, run the statements of the file then serve until interrupted",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:     "file, f",
					Usage:    "the path of the sql script",
					Required: true,
				},
			},
			Action: func(c *cli.Context) error {
				b, err := os.ReadFile(c.String("file"))
				if err != nil {
					return fmt.Errorf("read %s error: %v", c.String("file"), err)
				}
				server.StartUp(Version, string(b))
				return nil
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
