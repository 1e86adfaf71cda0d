package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigquery/sigquery/internal/jq"
	"github.com/sigquery/sigquery/query"
)

var (
	callParams []string
	callPath   string
	callMethod string
	callQuery  string
)

func newCallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <action>",
		Short: "Execute a signed API action",
		Long: `Execute a signed request for the given API action and print the
response body.

Parameters are passed as repeated --param flags in key=value form,
using the wire naming of the remote API (list members carry their
index, e.g. InstanceId.1).

With --query, the response body is parsed as JSON and filtered through
a jq expression before printing.

Examples:
  sigquery call DescribeInstances --param InstanceId.1=i-1234
  sigquery call ListQueues --method GET --param Prefix=orders
  sigquery call GetMetrics --query '.metrics[].name'`,
		Args: cobra.ExactArgs(1),
		RunE: runCall,
	}

	cmd.Flags().StringArrayVar(&callParams, "param", nil, "Request parameter in key=value form (repeatable)")
	cmd.Flags().StringVar(&callPath, "path", "/", "Request path")
	cmd.Flags().StringVar(&callMethod, "method", http.MethodPost, "HTTP method")
	cmd.Flags().StringVar(&callQuery, "query", "", "jq expression applied to a JSON response body")

	return cmd
}

func runCall(cmd *cobra.Command, args []string) error {
	action := args[0]

	params := query.Tree{}
	for _, p := range callParams {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid --param %q, expected key=value", p)
		}
		params[key] = value
	}

	if err := jq.Validate(callQuery); err != nil {
		return fmt.Errorf("invalid --query: %w", err)
	}

	ctx := cmd.Context()
	c, err := newClient(ctx)
	if err != nil {
		return err
	}

	resp, err := c.MakeRequest(ctx, action, params, callPath, strings.ToUpper(callMethod))
	if err != nil {
		return err
	}

	if callQuery == "" {
		cmd.Println(strings.TrimRight(string(resp.Body), "\n"))
		return nil
	}

	var data any
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		return fmt.Errorf("--query requires a JSON response body: %w", err)
	}
	result, err := jq.Apply(ctx, callQuery, data)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}
