// Package schema provides field-level type checks for intake step data.
//
// Schemas map field names to types. Besides the scalar types (string, int,
// bool) it ships the shapes an intake form needs: non-blank text, e-mail,
// dates, enums, lists and nested objects, and an Optional wrapper for fields
// a step may leave empty.
//
//	s := schema.Schema{
//	    "nombre":       schema.Text(),
//	    "correo":       schema.Email(),
//	    "fecha_inicio": schema.Date(""),
//	    "producto":     schema.Enum("ENTERFAC", "ANDESPOS"),
//	}
//
//	if err := schema.Validate(s, data); err != nil {
//	    fields := schema.FieldErrors(err)
//	}
//
// Schemas serialize as a map of field names to type names, which the CLI uses
// to describe steps.
package schema
