package memory

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/dispatchboard/core/model"
)

// Fixture is the YAML form of a roster and its work orders.
type Fixture struct {
	Technicians []FixtureTechnician `yaml:"technicians"`
	WorkOrders  []FixtureWorkOrder  `yaml:"workOrders"`
}

type FixtureTechnician struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Avatar       string `yaml:"avatar"`
	Availability string `yaml:"availability"`
}

type FixtureWorkOrder struct {
	ID           string `yaml:"id"`
	CustomerName string `yaml:"customerName"`
	JobType      string `yaml:"jobType"`
	Date         string `yaml:"date"`
	StartTime    string `yaml:"startTime"`
	EndTime      string `yaml:"endTime"`
	Status       string `yaml:"status"`
	Priority     string `yaml:"priority"`
	TechnicianID string `yaml:"technicianId"`
}

// LoadFixture reads a YAML fixture file.
func LoadFixture(path string) (Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fixture{}, err
	}
	defer func() { _ = f.Close() }()
	return DecodeFixture(f)
}

func DecodeFixture(r io.Reader) (Fixture, error) {
	var fx Fixture
	if err := yaml.NewDecoder(r).Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	return fx, nil
}

// Model converts the fixture into domain values.
func (fx Fixture) Model() ([]model.Technician, []model.WorkOrder, error) {
	techs := make([]model.Technician, 0, len(fx.Technicians))
	for _, t := range fx.Technicians {
		av := model.Availability(t.Availability)
		if av == "" {
			av = model.AvailabilityAvailable
		}
		techs = append(techs, model.Technician{ID: t.ID, Name: t.Name, Avatar: t.Avatar, Availability: av})
	}
	orders := make([]model.WorkOrder, 0, len(fx.WorkOrders))
	for _, w := range fx.WorkOrders {
		wo, err := w.model()
		if err != nil {
			return nil, nil, fmt.Errorf("work order %s: %w", w.ID, err)
		}
		orders = append(orders, wo)
	}
	return techs, orders, nil
}

func (w FixtureWorkOrder) model() (model.WorkOrder, error) {
	wo := model.WorkOrder{
		ID:           w.ID,
		CustomerName: w.CustomerName,
		JobType:      w.JobType,
		Status:       model.Status(w.Status),
		Priority:     model.Priority(w.Priority),
		TechnicianID: w.TechnicianID,
	}
	if wo.Status == "" {
		wo.Status = model.StatusNew
	}
	if wo.Priority == "" {
		wo.Priority = model.PriorityNormal
	}
	var err error
	if w.Date != "" {
		if wo.Date, err = model.ParseDate(w.Date); err != nil {
			return wo, err
		}
	}
	if w.StartTime != "" {
		if wo.Start, err = model.ParseClockTime(w.StartTime); err != nil {
			return wo, err
		}
	}
	if w.EndTime != "" {
		if wo.End, err = model.ParseClockTime(w.EndTime); err != nil {
			return wo, err
		}
	}
	return wo, nil
}
