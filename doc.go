/*
Package intake is a multi-step intake workflow engine for registering client
companies.

An intake is an ordered list of steps. Each step owns a slice of the form and
may carry a validator. The engine only lets a session move forward once the
active step validates, saves a recoverable draft on every advance, and hands
the whole form to a submission gateway in a single call once every required
step has passed.

# Architecture

The engine sits between two ports: a DraftStore, where in-progress sessions
are kept (memory, file, redis, sqlite and postgres adapters are provided), and
a SubmissionGateway, the system of record that receives finished intakes.
Transports (HTTP, MCP, CLI) drive sessions through the same Workflow API.

# Usage

	b := registry.NewBuilder()
	b.Add("company").Title("Company").Validate(validation.Required("rut", "name"))
	b.Add("contact").Title("Contact").Validate(validation.Required("email"))
	steps, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}

	eng, err := intake.New(steps, intake.WithGateway(memory.NewGateway()))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	wf, err := eng.Start(ctx, "")
	if err != nil {
		log.Fatal(err)
	}

	_ = wf.SetStepData("company", domain.StepData{"rut": "76.086.428-5", "name": "ACME"})
	if _, err := wf.NextStep(ctx); err != nil {
		log.Fatal(err)
	}

	_ = wf.SetStepData("contact", domain.StepData{"email": "ops@acme.cl"})
	ok, err := wf.NextStep(ctx)
	if err != nil || !ok {
		log.Fatal(wf.FieldErrors(), err)
	}

	recordID, err := wf.SubmitForm(ctx)
*/
package intake
