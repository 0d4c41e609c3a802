// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

/*
bio-edu-sigma normalizes the binned read counts of one EdU-seq sample into a
per-bin sigma signal.  It merges the adjusted sample counts, the raw sample
bin counts and the sheared control depth, corrects for background noise and
depth bias, smooths and trims the result and writes it in log2 scale together
with a quality-control report and a bar chart.
*/

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/edusigma/sigma"
	"v.io/x/lib/cmdline"
)

func newCmdPresets() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "presets",
		Short: "List the normalization presets and their settings",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("presets takes no arguments, but got %v", argv)
		}
		for _, name := range sigma.PresetNames() {
			fmt.Fprintln(env.Stdout, describePreset(name, sigma.Presets[name]))
		}
		return nil
	})
	return cmd
}

func describePreset(name string, o sigma.Opts) string {
	var b strings.Builder
	if name == sigma.DefaultPreset {
		name += " (default)"
	}
	fmt.Fprintf(&b, "%s:\n", name)
	fmt.Fprintf(&b, "  scale factor %v, global correction %v\n", o.ScaleFactor, o.ApplyGlobalCorrection)
	fmt.Fprintf(&b, "  noise %v over %v sample, p%v-p%v\n", o.NoiseMode, o.NoiseSample, o.NoiseLowPercentile, o.NoiseHighPercentile)
	fmt.Fprintf(&b, "  bias curve fit %v, zero depth %v\n", o.ApplyBiasCurveFit, o.ZeroDepth)
	fmt.Fprintf(&b, "  window %d, trim factor %v, log2 floor %v", o.Window, o.TrimFactor, o.MinValue)
	return b.String()
}

func main() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-edu-sigma",
			Short:    "Normalize EdU-seq bin counts into sigma",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdRun(),
				newCmdPresets(),
			},
		})
}
