// Package saga ejecuta pasos con compensación: si un paso falla, deshace los ya aplicados
// en orden inverso (LIFO) antes de devolver el error del paso.
package saga

import "context"

// Step es un paso con su acción y su compensación. Compensate puede ser nil.
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga acumula pasos y los ejecuta en orden de inserción.
type Saga struct {
	steps    []Step
	executed []Step
	// OnCompensate se invoca por cada paso compensado, con el error de la compensación si lo hubo.
	OnCompensate func(step string, err error)
}

// New crea una saga vacía.
func New() *Saga {
	return &Saga{}
}

// AddStep agrega un paso al final.
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) *Saga {
	s.steps = append(s.steps, Step{Name: name, Action: action, Compensate: compensate})
	return s
}

// Execute corre los pasos en orden. Ante el primer fallo, o si ctx se cancela entre pasos,
// compensa lo ejecutado y devuelve ese error sin envolver.
func (s *Saga) Execute(ctx context.Context) error {
	for _, step := range s.steps {
		if err := ctx.Err(); err != nil {
			s.compensate()
			return err
		}
		if step.Action != nil {
			if err := step.Action(ctx); err != nil {
				s.compensate()
				return err
			}
		}
		s.executed = append(s.executed, step)
	}
	return nil
}

// Executed devuelve los nombres de los pasos aplicados y no compensados.
func (s *Saga) Executed() []string {
	names := make([]string, 0, len(s.executed))
	for _, st := range s.executed {
		names = append(names, st.Name)
	}
	return names
}

// compensate usa un contexto propio: una cancelación no debe dejar la compensación a medias.
func (s *Saga) compensate() {
	ctx := context.Background()
	for i := len(s.executed) - 1; i >= 0; i-- {
		step := s.executed[i]
		var err error
		if step.Compensate != nil {
			err = step.Compensate(ctx)
		}
		if s.OnCompensate != nil {
			s.OnCompensate(step.Name, err)
		}
	}
	s.executed = s.executed[:0]
}
