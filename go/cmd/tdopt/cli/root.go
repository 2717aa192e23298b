/*
Copyright 2023 The Tundra Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tundradb/tundra/go/td/log"
	"github.com/tundradb/tundra/go/td/optimizer"
	"github.com/tundradb/tundra/go/td/terrors"
)

var (
	configFile    string
	planFile      string
	disabledRules []string
)

// Main builds the tdopt command tree.
func Main() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tdopt",
		Short: "Run the plan transformation engine over a serialized plan.",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				viper.SetConfigFile(configFile)
				if err := viper.ReadInConfig(); err != nil {
					return terrors.Wrapf(err, "reading config %v", configFile)
				}
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: run,
	}

	fs := rootCmd.Flags()
	fs.StringVarP(&configFile, "config-file", "c", "", "optional config file with session variables")
	fs.StringVarP(&planFile, "plan-file", "p", "", "JSON file holding the plan to rewrite")
	fs.StringSliceVar(&disabledRules, "disable-rules", nil, "rule names to leave out of the pass")
	fs.Bool("enable-pipeline-engine", true, "plan for the pipeline execution engine")
	rootCmd.MarkFlagRequired("plan-file")
	rootCmd.MarkFlagFilename("plan-file")

	log.RegisterFlags(rootCmd.PersistentFlags())

	return rootCmd
}

func run(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(planFile)
	if err != nil {
		return terrors.Wrapf(err, "reading plan %v", planFile)
	}
	root, err := decodePlan(data)
	if err != nil {
		return err
	}

	session := optimizer.SessionVariables{
		EnablePipelineEngine: viper.GetBool("enable-pipeline-engine"),
	}
	disabled, err := ruleTypes(disabledRules)
	if err != nil {
		return err
	}
	ctx := optimizer.NewContext(session, optimizer.WithDisabledRules(disabled...))

	rewritten, changed := optimizer.RewriteBottomUp(ctx, root)
	if changed {
		log.Infof("plan changed by rewrite")
	}
	fmt.Fprint(cmd.OutOrStdout(), rewritten.String())
	return nil
}

func ruleTypes(names []string) ([]optimizer.RuleType, error) {
	all := []optimizer.RuleType{
		optimizer.RulePushDownPredicateWindowRank,
		optimizer.RulePushDownPredicateScan,
		optimizer.RuleMergeTwoFilters,
	}
	types := make([]optimizer.RuleType, 0, len(names))
outer:
	for _, name := range names {
		for _, t := range all {
			if t.String() == name {
				types = append(types, t)
				continue outer
			}
		}
		return nil, terrors.Errorf(terrors.CodeInvalidArgument, "unknown rule %q", name)
	}
	return types, nil
}
