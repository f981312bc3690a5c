package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/gridmetrics-lab/derrev/pkg/domain/model"
	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
)

type projectDocument struct {
	ID        string         `firestore:"id"`
	Slug      string         `firestore:"slug"`
	Version   string         `firestore:"version"`
	CreatedAt time.Time      `firestore:"created_at"`
	UpdatedAt time.Time      `firestore:"updated_at"`
	Identity  identityDoc    `firestore:"identity"`
	Load      loadMetaDoc    `firestore:"load"`
	Tariff    tariffDoc      `firestore:"tariff"`
	PV        pvDoc          `firestore:"pv"`
	BESS      bessDoc        `firestore:"bess"`
	Inferred  map[string]any `firestore:"inferred,omitempty"`
}

type identityDoc struct {
	Name         string `firestore:"name"`
	CustomerType string `firestore:"customer_type"`
	SiteAddress  string `firestore:"site_address"`
	Notes        string `firestore:"notes,omitempty"`
}

type loadMetaDoc struct {
	PerMeter        bool      `firestore:"per_meter"`
	MeterIDs        []string  `firestore:"meter_ids,omitempty"`
	IntervalMinutes int       `firestore:"interval_minutes"`
	Start           time.Time `firestore:"start"`
	End             time.Time `firestore:"end"`
	EstIncreaseKW   *float64  `firestore:"est_increase_kw,omitempty"`
	EstIncreasePct  *float64  `firestore:"est_increase_pct,omitempty"`
}

type billingMonthDoc struct {
	Month           string   `firestore:"month"`
	MeterID         string   `firestore:"meter_id,omitempty"`
	EnergyUSD       *float64 `firestore:"energy_usd,omitempty"`
	PeakDemandUSD   *float64 `firestore:"peak_demand_usd,omitempty"`
	CapacityUSD     *float64 `firestore:"capacity_usd,omitempty"`
	TransmissionUSD *float64 `firestore:"transmission_usd,omitempty"`
	TotalSpendUSD   *float64 `firestore:"total_spend_usd,omitempty"`
}

type tariffDoc struct {
	BaselineTariffName string            `firestore:"baseline_tariff_name,omitempty"`
	MonthlyMode        string            `firestore:"monthly_mode"`
	MonthlyBilling     []billingMonthDoc `firestore:"monthly_billing,omitempty"`
}

type pvRowDoc struct {
	MeterID string  `firestore:"meter_id"`
	DCKW    float64 `firestore:"dc_kw"`
	ACKW    float64 `firestore:"ac_kw"`
}

type pvDoc struct {
	Mode string     `firestore:"mode"`
	Rows []pvRowDoc `firestore:"rows,omitempty"`
}

type bessRowDoc struct {
	MeterID   string  `firestore:"meter_id"`
	PowerKW   float64 `firestore:"power_kw"`
	EnergyKWH float64 `firestore:"energy_kwh"`
}

type bessDoc struct {
	Mode string       `firestore:"mode"`
	Rows []bessRowDoc `firestore:"rows,omitempty"`
}

type loadSeriesDocument struct {
	Columns []string     `firestore:"columns"`
	Rows    []loadRowDoc `firestore:"rows"`
}

type loadRowDoc struct {
	Start  time.Time `firestore:"start"`
	Values []float64 `firestore:"values"`
}

type projectRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newProjectRepository(client *firestore.Client) *projectRepository {
	return &projectRepository{client: client}
}

func (r *projectRepository) projectsCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_projects"
	}
	return "projects"
}

func projectToDocument(p *model.Project) *projectDocument {
	doc := &projectDocument{
		ID:        string(p.ID),
		Slug:      p.Identity.Slug(),
		Version:   p.Version,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		Identity: identityDoc{
			Name:         p.Identity.Name,
			CustomerType: p.Identity.CustomerType,
			SiteAddress:  p.Identity.SiteAddress,
			Notes:        p.Identity.Notes,
		},
		Load: loadMetaDoc{
			PerMeter:        p.Load.PerMeter,
			MeterIDs:        p.Load.MeterIDs,
			IntervalMinutes: p.Load.IntervalMinutes,
			Start:           p.Load.Start,
			End:             p.Load.End,
			EstIncreaseKW:   p.Load.EstIncreaseKW,
			EstIncreasePct:  p.Load.EstIncreasePct,
		},
		Tariff: tariffDoc{
			BaselineTariffName: p.Tariff.BaselineTariffName,
			MonthlyMode:        string(p.Tariff.MonthlyMode),
		},
		PV:   pvDoc{Mode: string(p.PV.Mode)},
		BESS: bessDoc{Mode: string(p.BESS.Mode)},
	}

	for _, b := range p.Tariff.MonthlyBilling {
		doc.Tariff.MonthlyBilling = append(doc.Tariff.MonthlyBilling, billingMonthDoc{
			Month:           b.Month,
			MeterID:         b.MeterID,
			EnergyUSD:       b.EnergyUSD,
			PeakDemandUSD:   b.PeakDemandUSD,
			CapacityUSD:     b.CapacityUSD,
			TransmissionUSD: b.TransmissionUSD,
			TotalSpendUSD:   b.TotalSpendUSD,
		})
	}
	for _, row := range p.PV.Rows {
		doc.PV.Rows = append(doc.PV.Rows, pvRowDoc{MeterID: row.MeterID, DCKW: row.DCKW, ACKW: row.ACKW})
	}
	for _, row := range p.BESS.Rows {
		doc.BESS.Rows = append(doc.BESS.Rows, bessRowDoc{MeterID: row.MeterID, PowerKW: row.PowerKW, EnergyKWH: row.EnergyKWH})
	}
	if p.Inferred != nil {
		doc.Inferred = map[string]any{
			"timezone":          p.Inferred.Timezone,
			"utility_name":      p.Inferred.UtilityName,
			"service_territory": p.Inferred.ServiceTerritory,
			"iso_rto":           string(p.Inferred.ISORTO),
			"pricing_node":      p.Inferred.PricingNode,
			"notes":             p.Inferred.Notes,
		}
	}
	return doc
}

func projectToModel(doc *projectDocument) *model.Project {
	p := &model.Project{
		ID:        types.ProjectID(doc.ID),
		Version:   doc.Version,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		Identity: model.Identity{
			Name:         doc.Identity.Name,
			CustomerType: doc.Identity.CustomerType,
			SiteAddress:  doc.Identity.SiteAddress,
			Notes:        doc.Identity.Notes,
		},
		Load: model.LoadMeta{
			PerMeter:        doc.Load.PerMeter,
			MeterIDs:        doc.Load.MeterIDs,
			IntervalMinutes: doc.Load.IntervalMinutes,
			Start:           doc.Load.Start,
			End:             doc.Load.End,
			EstIncreaseKW:   doc.Load.EstIncreaseKW,
			EstIncreasePct:  doc.Load.EstIncreasePct,
		},
		Tariff: model.Tariff{
			BaselineTariffName: doc.Tariff.BaselineTariffName,
			MonthlyMode:        types.AllocationMode(doc.Tariff.MonthlyMode),
		},
		PV:   model.PVInputs{Mode: types.AllocationMode(doc.PV.Mode)},
		BESS: model.BESSInputs{Mode: types.AllocationMode(doc.BESS.Mode)},
	}

	for _, b := range doc.Tariff.MonthlyBilling {
		p.Tariff.MonthlyBilling = append(p.Tariff.MonthlyBilling, model.BillingMonth{
			Month:           b.Month,
			MeterID:         b.MeterID,
			EnergyUSD:       b.EnergyUSD,
			PeakDemandUSD:   b.PeakDemandUSD,
			CapacityUSD:     b.CapacityUSD,
			TransmissionUSD: b.TransmissionUSD,
			TotalSpendUSD:   b.TotalSpendUSD,
		})
	}
	for _, row := range doc.PV.Rows {
		p.PV.Rows = append(p.PV.Rows, model.PVRow{MeterID: row.MeterID, DCKW: row.DCKW, ACKW: row.ACKW})
	}
	for _, row := range doc.BESS.Rows {
		p.BESS.Rows = append(p.BESS.Rows, model.BESSRow{MeterID: row.MeterID, PowerKW: row.PowerKW, EnergyKWH: row.EnergyKWH})
	}
	if doc.Inferred != nil {
		inf := &model.Inferred{}
		if v, ok := doc.Inferred["timezone"].(string); ok {
			inf.Timezone = v
		}
		if v, ok := doc.Inferred["utility_name"].(string); ok {
			inf.UtilityName = v
		}
		if v, ok := doc.Inferred["service_territory"].(string); ok {
			inf.ServiceTerritory = v
		}
		if v, ok := doc.Inferred["iso_rto"].(string); ok {
			inf.ISORTO = types.ISO(v)
		}
		if v, ok := doc.Inferred["pricing_node"].(string); ok {
			inf.PricingNode = v
		}
		if v, ok := doc.Inferred["notes"].(string); ok {
			inf.Notes = v
		}
		p.Inferred = inf
	}
	return p
}

func (r *projectRepository) findBySlug(ctx context.Context, slug string) (*projectDocument, error) {
	iter := r.client.Collection(r.projectsCollection()).
		Where("slug", "==", slug).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(ErrNotFound, "project not found", goerr.V("slug", slug))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query project by slug", goerr.V("slug", slug))
	}

	var doc projectDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode project document")
	}
	return &doc, nil
}

func (r *projectRepository) Create(ctx context.Context, project *model.Project) (*model.Project, error) {
	slug := project.Identity.Slug()
	if _, err := r.findBySlug(ctx, slug); err == nil {
		return nil, goerr.Wrap(ErrSlugTaken, "project slug already exists", goerr.V("slug", slug))
	}

	now := time.Now().UTC()
	created := *project
	if created.ID == "" {
		created.ID = types.NewProjectID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	doc := projectToDocument(&created)
	docRef := r.client.Collection(r.projectsCollection()).Doc(string(created.ID))
	if _, err := docRef.Set(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to create project", goerr.V("id", created.ID))
	}

	return projectToModel(doc), nil
}

func (r *projectRepository) Get(ctx context.Context, id types.ProjectID) (*model.Project, error) {
	snap, err := r.client.Collection(r.projectsCollection()).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get project", goerr.V("id", id))
	}

	var doc projectDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode project document", goerr.V("id", id))
	}
	return projectToModel(&doc), nil
}

func (r *projectRepository) GetBySlug(ctx context.Context, slug string) (*model.Project, error) {
	doc, err := r.findBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return projectToModel(doc), nil
}

func (r *projectRepository) List(ctx context.Context) ([]model.Summary, error) {
	iter := r.client.Collection(r.projectsCollection()).Documents(ctx)
	defer iter.Stop()

	var summaries []model.Summary
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list projects")
		}
		var doc projectDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode project document")
		}
		summaries = append(summaries, projectToModel(&doc).Summarize())
	}
	model.SortSummaries(summaries)
	return summaries, nil
}

func (r *projectRepository) Update(ctx context.Context, project *model.Project) (*model.Project, error) {
	existing, err := r.Get(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	newSlug := project.Identity.Slug()
	if newSlug != existing.Identity.Slug() {
		if other, err := r.findBySlug(ctx, newSlug); err == nil && other.ID != string(project.ID) {
			return nil, goerr.Wrap(ErrSlugTaken, "project slug already exists", goerr.V("slug", newSlug))
		}
	}

	updated := *project
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	doc := projectToDocument(&updated)
	docRef := r.client.Collection(r.projectsCollection()).Doc(string(updated.ID))
	if _, err := docRef.Set(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to update project", goerr.V("id", updated.ID))
	}

	return projectToModel(doc), nil
}

func (r *projectRepository) Delete(ctx context.Context, id types.ProjectID) error {
	docRef := r.client.Collection(r.projectsCollection()).Doc(string(id))
	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to get project", goerr.V("id", id))
	}

	if _, err := docRef.Collection("load").Doc("series").Delete(ctx); err != nil {
		if status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to delete load series", goerr.V("id", id))
		}
	}
	if _, err := docRef.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete project", goerr.V("id", id))
	}
	return nil
}

func (r *projectRepository) PutLoad(ctx context.Context, id types.ProjectID, series *model.LoadSeries) error {
	docRef := r.client.Collection(r.projectsCollection()).Doc(string(id))
	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to get project", goerr.V("id", id))
	}

	doc := loadSeriesDocument{Columns: series.Columns}
	for _, row := range series.Rows {
		doc.Rows = append(doc.Rows, loadRowDoc{Start: row.Start, Values: row.Values})
	}

	if _, err := docRef.Collection("load").Doc("series").Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to store load series", goerr.V("id", id))
	}
	return nil
}

func (r *projectRepository) GetLoad(ctx context.Context, id types.ProjectID) (*model.LoadSeries, error) {
	snap, err := r.client.Collection(r.projectsCollection()).
		Doc(string(id)).Collection("load").Doc("series").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "load series not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get load series", goerr.V("id", id))
	}

	var doc loadSeriesDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode load series", goerr.V("id", id))
	}

	series := &model.LoadSeries{Columns: doc.Columns}
	for _, row := range doc.Rows {
		series.Rows = append(series.Rows, model.LoadRow{Start: row.Start, Values: row.Values})
	}
	return series, nil
}
