package engine

import "github.com/sokinpui/patchsync/model"

// aggregator merges per-target outcomes across rounds. A target whose
// outcome is frozen keeps it; a failed target is overwritten by the next
// round that attempts it.
type aggregator struct {
	order   []string
	results map[string]model.TargetResult
}

func newAggregator(targets []string) *aggregator {
	return &aggregator{
		order:   targets,
		results: make(map[string]model.TargetResult, len(targets)),
	}
}

func (a *aggregator) record(res model.TargetResult) {
	if prev, ok := a.results[res.Target]; ok && prev.Status.Frozen() {
		return
	}
	a.results[res.Target] = res
}

func (a *aggregator) recordAll(results []model.TargetResult) {
	for _, res := range results {
		a.record(res)
	}
}

// pending lists, in caller order, the targets a next round should attempt.
func (a *aggregator) pending() []string {
	var targets []string
	for _, target := range a.order {
		res, ok := a.results[target]
		if !ok || res.Status == model.StatusFailed {
			targets = append(targets, target)
		}
	}
	return targets
}

func (a *aggregator) report() *model.SyncReport {
	report := &model.SyncReport{Results: make([]model.TargetResult, 0, len(a.order))}
	for _, target := range a.order {
		res, ok := a.results[target]
		if !ok {
			res = model.TargetResult{Target: target, Status: model.StatusFailed, Message: "not attempted"}
		}
		report.Results = append(report.Results, res)
	}
	return report
}
