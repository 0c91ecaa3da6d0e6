package tracing

import (
	"context"
	"strings"

	"github.com/sarchlab/mtloop/datarecording"
)

// ExecutionQuery selects rows of the execution table. Zero fields do not
// filter.
type ExecutionQuery struct {
	Task  string
	Chain *int

	// StartFrom and StartTo bound the start tick, both inclusive.
	StartFrom uint64
	StartTo   uint64

	Limit  int
	Offset int
}

func (q ExecutionQuery) params() datarecording.QueryParams {
	var (
		conds []string
		args  []any
	)

	if q.Task != "" {
		conds = append(conds, "Task = ?")
		args = append(args, q.Task)
	}

	if q.Chain != nil {
		conds = append(conds, "Chain = ?")
		args = append(args, *q.Chain)
	}

	if q.StartFrom > 0 {
		conds = append(conds, "Start >= ?")
		args = append(args, q.StartFrom)
	}

	if q.StartTo > 0 {
		conds = append(conds, "Start <= ?")
		args = append(args, q.StartTo)
	}

	return datarecording.QueryParams{
		Where:   strings.Join(conds, " AND "),
		Args:    args,
		OrderBy: "Start, Chain, Slot",
		Limit:   q.Limit,
		Offset:  q.Offset,
	}
}

// ReadExecutions returns the recorded executions in start order, together
// with the number of rows that match the query ignoring Limit and Offset.
func ReadExecutions(
	ctx context.Context,
	r datarecording.DataReader,
	q ExecutionQuery,
) ([]ExecutionEntry, int, error) {
	return datarecording.QueryAs[ExecutionEntry](
		ctx, r, ExecutionTable, q.params())
}

// ReadAdvances returns the slot advances of a chain in order. A negative
// chain returns the advances of every chain.
func ReadAdvances(
	ctx context.Context,
	r datarecording.DataReader,
	chain int,
) ([]AdvanceEntry, error) {
	params := datarecording.QueryParams{OrderBy: "RightEdge, Chain"}
	if chain >= 0 {
		params.Where = "Chain = ?"
		params.Args = []any{chain}
	}

	rows, _, err := datarecording.QueryAs[AdvanceEntry](
		ctx, r, AdvanceTable, params)

	return rows, err
}
