// Copyright 2025 Zintix Labs
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

// ops 是開發用的任務腳本：go run ./scripts <task>
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const (
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorReset  = "\033[0m"
)

func printColor(color, msg string) { fmt.Printf("%s%s%s\n", color, msg, colorReset) }

// task 一個任務由數個依序執行的指令組成；filter 為 nil 時原樣輸出。
type task struct {
	desc   string
	cmds   [][]string
	filter func(line string) (string, bool)
}

var tasks = map[string]task{
	"test": {
		desc:   "clean test cache, run every package, print ok/FAIL lines only",
		cmds:   [][]string{{"go", "clean", "-testcache"}, {"go", "test", "./...", "-cover", "-count=1"}},
		filter: summaryOnly,
	},
	"test-race": {
		desc:   "run every package with the race detector",
		cmds:   [][]string{{"go", "test", "./...", "-race", "-count=1"}},
		filter: summaryOnly,
	},
	"test-detail": {
		desc:   "verbose tests without the [no test files] noise",
		cmds:   [][]string{{"go", "clean", "-testcache"}, {"go", "test", "./...", "-v", "-count=1"}},
		filter: dropNoTestFiles,
	},
	"demo": {
		desc: "list the demo settings and generate one sig_bkg toy",
		cmds: [][]string{{"go", "run", "./cmd/run", "-list"}, {"go", "run", "./cmd/run", "-cfg", "sig_bkg", "-seed", "1"}},
	},
	"toys": {
		desc: "run 2000 sig_bkg_ext toys on 4 workers",
		cmds: [][]string{{"go", "run", "./cmd/run", "-cfg", "sig_bkg_ext", "-toys", "2000", "-worker", "4", "-seed", "1"}},
	},
	"svr": {
		desc: "start the lab server with the demo models",
		cmds: [][]string{{"go", "run", "./cmd/svr"}},
	},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	t, ok := tasks[os.Args[1]]
	if !ok {
		printColor(colorYellow, "Unknown task: "+os.Args[1])
		usage()
		os.Exit(1)
	}
	printColor(colorGreen, t.desc)
	for _, args := range t.cmds {
		if err := run(args, t.filter); err != nil {
			printColor(colorRed, fmt.Sprintf("%s: %v", strings.Join(args, " "), err))
			os.Exit(1)
		}
	}
}

func usage() {
	fmt.Println("Usage: go run ./scripts [task]")
	for name, t := range tasks {
		fmt.Printf("  %-12s %s\n", name, t.desc)
	}
}

// run 執行單一指令；stderr 併入 stdout 一起過濾，編譯錯誤才看得到。
func run(args []string, filter func(string) (string, bool)) error {
	cmd := exec.Command(args[0], args[1:]...)
	if filter == nil {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd.Run()
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return err
	}
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		if line, ok := filter(sc.Text()); ok {
			switch {
			case strings.HasPrefix(line, "ok"):
				printColor(colorGreen, line)
			case strings.HasPrefix(line, "FAIL"), strings.Contains(line, "build failed"):
				printColor(colorRed, line)
			default:
				fmt.Println(line)
			}
		}
	}
	return cmd.Wait()
}

func summaryOnly(line string) (string, bool) {
	return line, strings.HasPrefix(line, "ok") || strings.HasPrefix(line, "FAIL") ||
		strings.Contains(line, "build failed") || strings.Contains(line, "setup failed")
}

func dropNoTestFiles(line string) (string, bool) {
	return line, !strings.Contains(line, "[no test files]")
}
