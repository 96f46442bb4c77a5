package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/clintrovert/scrummaster/internal/analysis"
	"github.com/clintrovert/scrummaster/internal/apperr"
	"github.com/clintrovert/scrummaster/internal/github"
	"github.com/clintrovert/scrummaster/internal/planner"
	"github.com/clintrovert/scrummaster/pkg/types"
)

// analysisReport is the YAML document printed by analyze
type analysisReport struct {
	Model   *types.ProjectModel `yaml:"model"`
	Backlog *types.Backlog      `yaml:"backlog"`
}

func (a *App) newAnalyzeCommand() *cobra.Command {
	var repository, local string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyse a repository and print the project model and backlog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (repository == "") == (local == "") {
				return apperr.ErrMissingFlag.
					WithContext("flag", "repository|local").
					WithSuggestion("Pass exactly one of --repository or --local")
			}

			var repo *types.Repository
			pl := planner.Planner(planner.RecommendationPlanner{})

			if local != "" {
				snapshot, err := github.LocalSnapshot(local)
				if err != nil {
					return err
				}
				repo = snapshot
			} else {
				owner, name, err := github.ParseRepositoryURL(repository)
				if err != nil {
					return err
				}
				s, err := a.newSession()
				if err != nil {
					return err
				}
				defer s.close()
				if repo, err = s.api.FetchRepository(cmd.Context(), owner, name); err != nil {
					return err
				}
				if s.cfg.OpenAI.APIKey != "" {
					var aiOpts []planner.AIOption
					if s.cfg.OpenAI.BaseURL != "" {
						aiOpts = append(aiOpts, planner.WithBaseURL(s.cfg.OpenAI.BaseURL))
					}
					pl = planner.NewAIPlanner(s.cfg.OpenAI.APIKey, s.cfg.OpenAI.Model, s.logger, aiOpts...)
				}
			}

			strategy := analysis.NewFactory(nil).Create(analysis.DetectProjectType(repo))
			model, err := strategy.Analyze(cmd.Context(), repo)
			if err != nil {
				return err
			}
			backlog, err := pl.Plan(cmd.Context(), model)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Analysed %s (%s, %s)\n",
				firstNonEmpty(repo.FullName, repo.Name),
				humanize.Bytes(uint64(repo.Size)*1024),
				model.ProjectType,
			)

			enc := yaml.NewEncoder(a.Out)
			enc.SetIndent(2)
			if err := enc.Encode(analysisReport{Model: model, Backlog: backlog}); err != nil {
				return fmt.Errorf("failed to encode analysis: %w", err)
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVarP(&repository, "repository", "r", "", "GitHub repository URL")
	cmd.Flags().StringVar(&local, "local", "", "path to a local git clone")
	return cmd
}
