package prompts

import "github.com/cmarsh/mcpgo/pkg/protocol"

// registerSamplePrompts seeds the registry with its built-in defaults so
// a freshly constructed server has something to answer prompts/list with.
func registerSamplePrompts(r *Registry) {
	must := func(err error) {
		if err != nil {
			panic(err) // only reachable if a built-in prompt's own shape is invalid
		}
	}

	must(r.Add(protocol.Prompt{
		Name:        "code-review",
		Description: "Review code for best practices, bugs, and improvements",
		Arguments: []protocol.PromptArgument{
			{Name: "language", Description: "Programming language of the code", Required: true},
			{Name: "code", Description: "The code to review", Required: true},
		},
	}, []protocol.PromptMessage{
		{Role: "user", Content: protocol.TextContent(
			"Please review the following {{language}} code for:\n" +
				"- Best practices\n- Potential bugs\n- Performance improvements\n- Security issues\n\n" +
				"Code:\n```{{language}}\n{{code}}\n```")},
	}))

	must(r.Add(protocol.Prompt{
		Name:        "explain-concept",
		Description: "Explain a technical concept in simple terms",
		Arguments: []protocol.PromptArgument{
			{Name: "concept", Description: "The technical concept to explain", Required: true},
			{Name: "audience", Description: "Who the explanation is pitched at", Required: true},
		},
	}, []protocol.PromptMessage{
		{Role: "user", Content: protocol.TextContent(
			"Please explain {{concept}} in simple terms that a {{audience}} would understand. Include:\n" +
				"- What it is\n- Why it's important\n- How it works\n- Real-world examples\n\n" +
				"Adjust the explanation level for: {{audience}}")},
	}))

	must(r.Add(protocol.Prompt{
		Name:        "aws-architecture",
		Description: "Propose an AWS architecture for a described workload",
		Arguments: []protocol.PromptArgument{
			{Name: "workload", Description: "Description of the workload to architect for", Required: true},
		},
	}, []protocol.PromptMessage{
		{Role: "user", Content: protocol.TextContent(
			"Propose an AWS architecture for the following workload, including service choices and " +
				"the tradeoffs behind them:\n\n{{workload}}")},
	}))

	must(r.Add(protocol.Prompt{
		Name:        "sample",
		Description: "A minimal sample prompt with no required arguments",
	}, []protocol.PromptMessage{
		{Role: "user", Content: protocol.TextContent("This is a sample prompt.")},
	}))
}
