package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/theater/events"
	"github.com/dohr-michael/theater/future"
	"github.com/dohr-michael/theater/playbill"
	"github.com/dohr-michael/theater/schedule"
	"github.com/dohr-michael/theater/theater"
)

// NewRunCommand returns the playbill runner command.
func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Perform a playbill",
		ArgsUsage: "<playbill.yaml>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "for",
				Usage: "How long to keep curtain calls running after the acts finish",
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Args().Len() != 1 {
		return errors.New("run expects exactly one playbill file")
	}
	pb, err := playbill.Load(cmd.Args().First())
	if err != nil {
		return err
	}

	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()
	unsubscribe := bus.Subscribe(func(e events.Event) {
		slog.Debug("event", "type", string(e.Type), "payload", e.Payload)
	})
	defer unsubscribe()

	th := theater.New(theater.Config{
		Bus:             bus,
		ImmediateBudget: time.Duration(cfg.Stage.ImmediateBudgetMs) * time.Millisecond,
		FastBudget:      time.Duration(cfg.Stage.FastBudgetMs) * time.Millisecond,
		NormalBudget:    time.Duration(cfg.Stage.NormalBudgetMs) * time.Millisecond,
	})
	defer th.Close()

	runner := newPerformance(th, pb)

	for _, act := range pb.Acts {
		gig, err := runner.perform(act)
		if err != nil {
			return err
		}
		v, err := gig.Wait(ctx)
		if err != nil {
			fmt.Printf("act %-20s blooper: %v\n", act.Name, err)
			continue
		}
		fmt.Printf("act %-20s prompt: %v\n", act.Name, v)
	}

	if len(pb.CurtainCalls) > 0 {
		caller := schedule.New(schedule.Config{Theater: th, Bus: bus, Calls: runner.curtainCalls()})
		caller.Start()
		defer caller.Stop()

		wait := cmd.Duration("for")
		if wait <= 0 {
			wait = 2 * time.Minute
		}
		slog.Info("run: keeping curtain calls on stage", "for", wait.String())
		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
	}
	return nil
}

// performance interprets playbill acts into scenes.
type performance struct {
	th        *theater.Theater
	pb        *playbill.Playbill
	exchanges map[string]*future.Exchange
}

func newPerformance(th *theater.Theater, pb *playbill.Playbill) *performance {
	exchanges := make(map[string]*future.Exchange, len(pb.Exchanges))
	for _, x := range pb.Exchanges {
		exchanges[x.Name] = future.NewExchange(x.Capacity)
	}
	return &performance{th: th, pb: pb, exchanges: exchanges}
}

// perform starts one act and returns its gig.
func (p *performance) perform(act playbill.Act) (*theater.Gig, error) {
	fn, err := p.scene(act)
	if err != nil {
		return nil, err
	}
	return p.th.Run(fn), nil
}

// scene builds the scene body for an act kind.
func (p *performance) scene(act playbill.Act) (theater.SceneFunc, error) {
	switch act.Kind {
	case "countdown":
		steps := intParam(act.Params, "steps", 3)
		interval := time.Duration(intParam(act.Params, "interval_ms", 10)) * time.Millisecond
		return func(f *theater.Flow, _ ...any) (any, error) {
			for i := 0; i < steps; i++ {
				if err := f.Sleep(interval); err != nil {
					return nil, err
				}
			}
			return fmt.Sprintf("%d steps", steps), nil
		}, nil

	case "relay":
		x, ok := p.exchanges[strParam(act.Params, "exchange", "")]
		if !ok {
			return nil, fmt.Errorf("act %q references unknown exchange", act.Name)
		}
		items := listParam(act.Params, "items")
		if len(items) == 0 {
			items = []any{1, 2, 3}
		}
		return func(f *theater.Flow, _ ...any) (any, error) {
			producer := f.Theater().Run(func(pf *theater.Flow, _ ...any) (any, error) {
				for _, item := range items {
					if _, err := pf.When(x.Produce(item)); err != nil {
						return nil, err
					}
				}
				return len(items), nil
			})
			var relayed []any
			for range items {
				v, err := f.When(x.Consume())
				if err != nil {
					return nil, err
				}
				relayed = append(relayed, v)
			}
			if _, err := f.When(producer.Completion()); err != nil {
				return nil, err
			}
			return relayed, nil
		}, nil

	case "flaky":
		message := strParam(act.Params, "message", "flaky act failed")
		verdict := strParam(act.Params, "verdict", "punish")
		return func(f *theater.Flow, _ ...any) (any, error) {
			worker := f.Cast(theater.Casting{
				Role:  newWorkerRole,
				Guard: guardFor(verdict),
			})
			gig := worker.Run("fail", message)
			_, sceneErr := f.When(gig.Completion())
			if _, err := f.When(worker.Kill().Completion()); err != nil {
				return nil, err
			}
			return fmt.Sprintf("survived %v under %s", sceneErr, verdict), nil
		}, nil

	default:
		return nil, fmt.Errorf("act %q has unknown kind %q", act.Name, act.Kind)
	}
}

// curtainCalls resolves the playbill's scheduled acts.
func (p *performance) curtainCalls() []schedule.CurtainCall {
	var calls []schedule.CurtainCall
	for _, cc := range p.pb.CurtainCalls {
		act, ok := p.pb.ActByName(cc.Act)
		if !ok {
			continue
		}
		fn, err := p.scene(act)
		if err != nil {
			slog.Warn("run: skipping curtain call", "title", cc.Title, "error", err)
			continue
		}
		calls = append(calls, schedule.CurtainCall{
			Title:    cc.Title,
			CronSpec: cc.Cron,
			Selector: fn,
			MaxRuns:  cc.MaxRuns,
			Enabled:  true,
		})
	}
	return calls
}

// workerRole is the cast role used by flaky acts.
type workerRole struct {
	theater.RoleBase
}

func newWorkerRole() theater.Role { return &workerRole{} }

func (r *workerRole) Repertoire() theater.Playbook {
	return theater.Playbook{
		"fail": func(_ *theater.Flow, params ...any) (any, error) {
			return nil, fmt.Errorf("%v", params[0])
		},
	}
}

func guardFor(verdict string) theater.Guard {
	return func(inc theater.Incident) theater.Verdict {
		switch verdict {
		case "forgive":
			return theater.Forgive()
		case "escalate":
			return theater.Escalate()
		default:
			return theater.Punish()
		}
	}
}

func intParam(params map[string]any, key string, fallback int) int {
	if v, ok := params[key]; ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return fallback
}

func strParam(params map[string]any, key, fallback string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

func listParam(params map[string]any, key string) []any {
	if v, ok := params[key]; ok {
		if l, ok := v.([]any); ok {
			return l
		}
	}
	return nil
}
