package planner

import (
	"fmt"

	"github.com/xlab/treeprint"
)

// ExplainPlan renders a plan as a tree, one node per line.
func ExplainPlan(node PlanNode) string {
	tree := treeprint.NewWithRoot(node.String())
	addChildren(tree, node, false)
	return tree.String()
}

// ExplainPlanVerbose is ExplainPlan with each node's output type and schema.
func ExplainPlanVerbose(node PlanNode) string {
	tree := treeprint.NewWithRoot(verboseValue(node))
	tree.SetMetaValue(node.NodeOutputType())
	addChildren(tree, node, true)
	return tree.String()
}

func addChildren(tree treeprint.Tree, node PlanNode, verbose bool) {
	for _, child := range node.Sources() {
		var branch treeprint.Tree
		if verbose {
			branch = tree.AddMetaBranch(child.NodeOutputType(), verboseValue(child))
		} else {
			branch = tree.AddBranch(child.String())
		}
		addChildren(branch, child, verbose)
	}
}

func verboseValue(node PlanNode) string {
	return fmt.Sprintf("%s => [%s]", node, node.Schema())
}
