// Copyright 2023 LiveKit, Inc.
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

//go:build mage
// +build mage

package main

import (
	"context"
	"fmt"
	"go/build"
	"os"
	"os/exec"
	"strings"

	"github.com/livekit/mageutil"
)

var Default = Build

const (
	imageName = "livekit/adpcm"
)

func Build() error {
	gopath := os.Getenv("GOPATH")
	if gopath == "" {
		gopath = build.Default.GOPATH
	}

	return run(fmt.Sprintf("go build -a -o %s/bin/adpcm ./cmd/adpcm", gopath))
}

func Test() error {
	return run("go test -v ./pkg/... ./cmd/...")
}

func Bench() error {
	return run("go test -run ^$ -bench . ./pkg/media/adpcm/...")
}

func BuildDocker() error {
	return mageutil.Run(context.Background(),
		fmt.Sprintf("docker build -t %s:latest -f build/adpcm/Dockerfile .", imageName),
	)
}

// helpers

func run(commands ...string) error {
	for _, command := range commands {
		args := strings.Split(command, " ")
		if err := runArgs(args...); err != nil {
			return err
		}
	}
	return nil
}

func runArgs(args ...string) error {
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
