// Package models holds the Bun models mapping the upstream ERP schema.
//
// Two families live here: the planning tables owned by this application
// (is_gestion_tache_*) and the ERP tables it reads from or writes back to
// (hr_employee, mrp_*, is_ordre_travail*). The ERP tables are never
// created or migrated by this service.
package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Planning display types as stored in is_gestion_tache_planning.type_donnees.
const (
	PlanningTypeOperation  = "operation" // rows are operators
	PlanningTypeWorkcenter = "of"        // rows are workcenters
)

// PlanningModel maps is_gestion_tache_planning.
type PlanningModel struct {
	bun.BaseModel `bun:"table:is_gestion_tache_planning,alias:p"`

	ID          int64      `bun:"id,pk" json:"id"`
	Name        string     `bun:"name,notnull" json:"name"`
	TypeDonnees string     `bun:"type_donnees,notnull" json:"type_donnees"`
	Active      bool       `bun:"active,notnull,default:true" json:"active"`
	DateFin     *time.Time `bun:"date_fin" json:"date_fin,omitempty"`
	Filtre      string     `bun:"filtre" json:"filtre,omitempty"`
	Ready       bool       `bun:"ready,notnull,default:false" json:"ready"`
}

// TaskModel maps is_gestion_tache. Exactly one of OperatorID / WorkcenterID
// is meaningful, selected by the owning planning's type_donnees. StartDate
// is stored in UTC.
type TaskModel struct {
	bun.BaseModel `bun:"table:is_gestion_tache,alias:t"`

	ID            int64     `bun:"id,pk" json:"id"`
	PlanningID    int64     `bun:"planning_id,notnull" json:"planning_id"`
	Name          string    `bun:"name,notnull" json:"name"`
	OperatorID    *int64    `bun:"operator_id" json:"operator_id,omitempty"`
	WorkcenterID  *int64    `bun:"workcenter_id" json:"workcenter_id,omitempty"`
	AffaireID     *int64    `bun:"affaire_id" json:"affaire_id,omitempty"`
	StartDate     time.Time `bun:"start_date,notnull" json:"start_date"`
	DurationHours float64   `bun:"duration_hours,notnull" json:"duration_hours"`

	// Upstream back-pointers, filled by the ERP when the planning is built.
	OperationID           *int64     `bun:"operation_id" json:"operation_id,omitempty"`
	ProductionID          *int64     `bun:"production_id" json:"production_id,omitempty"`
	ProductQty            float64    `bun:"product_qty" json:"product_qty"`
	DerniereDateRequiseAt *time.Time `bun:"is_derniere_date_prevue" json:"is_derniere_date_prevue,omitempty"`

	// Joined display columns, not part of the table itself.
	OperationName string `bun:"operation_name,scanonly" json:"operation_name,omitempty"`
	EmployeLabel  string `bun:"is_employe_ids_txt,scanonly" json:"is_employe_ids_txt,omitempty"`
}

// AffaireModel maps is_gestion_tache_affaire.
type AffaireModel struct {
	bun.BaseModel `bun:"table:is_gestion_tache_affaire,alias:a"`

	ID         int64  `bun:"id,pk" json:"id"`
	PlanningID int64  `bun:"planning_id,notnull" json:"planning_id"`
	Name       string `bun:"name,notnull" json:"name"`
	Color      string `bun:"color" json:"color,omitempty"`
}

// FermetureModel maps is_gestion_tache_fermeture: one closed day, either
// global (OperatorID nil) or scoped to one row.
type FermetureModel struct {
	bun.BaseModel `bun:"table:is_gestion_tache_fermeture,alias:f"`

	ID            int64     `bun:"id,pk" json:"id"`
	PlanningID    int64     `bun:"planning_id,notnull" json:"planning_id"`
	DateFermeture time.Time `bun:"date_fermeture,notnull" json:"date_fermeture"`
	OperatorID    *int64    `bun:"operator_id" json:"operator_id,omitempty"`
}

// OperatorLinkModel maps is_gestion_tache_operateur, the membership table
// binding operators to an operator-typed planning.
type OperatorLinkModel struct {
	bun.BaseModel `bun:"table:is_gestion_tache_operateur,alias:op"`

	ID         int64 `bun:"id,pk" json:"id"`
	PlanningID int64 `bun:"planning_id,notnull" json:"planning_id"`
	OperatorID int64 `bun:"operator_id,notnull" json:"operator_id"`
}

// WorkcenterLinkModel maps is_gestion_tache_workcenter, the membership
// table binding workcenters to a workcenter-typed planning.
type WorkcenterLinkModel struct {
	bun.BaseModel `bun:"table:is_gestion_tache_workcenter,alias:w"`

	ID           int64 `bun:"id,pk" json:"id"`
	PlanningID   int64 `bun:"planning_id,notnull" json:"planning_id"`
	WorkcenterID int64 `bun:"workcenter_id,notnull" json:"workcenter_id"`
}

// EmployeeModel maps hr_employee (read-only).
type EmployeeModel struct {
	bun.BaseModel `bun:"table:hr_employee,alias:he"`

	ID   int64  `bun:"id,pk" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
}

// WorkcenterModel maps mrp_workcenter (read-only).
type WorkcenterModel struct {
	bun.BaseModel `bun:"table:mrp_workcenter,alias:mw"`

	ID                 int64  `bun:"id,pk" json:"id"`
	Name               string `bun:"name,notnull" json:"name"`
	ResourceCalendarID *int64 `bun:"resource_calendar_id" json:"resource_calendar_id,omitempty"`
}

// CalendarAttendanceModel maps resource_calendar_attendance (read-only):
// the weekly working windows of a resource calendar. Dayofweek is the
// Odoo convention, "0" = Monday.
type CalendarAttendanceModel struct {
	bun.BaseModel `bun:"table:resource_calendar_attendance,alias:ca"`

	ID         int64   `bun:"id,pk" json:"id"`
	CalendarID int64   `bun:"calendar_id,notnull" json:"calendar_id"`
	Dayofweek  string  `bun:"dayofweek,notnull" json:"dayofweek"`
	HourFrom   float64 `bun:"hour_from,notnull" json:"hour_from"`
	HourTo     float64 `bun:"hour_to,notnull" json:"hour_to"`
}

// ProductionModel maps mrp_production. Only DatePlannedStart is written
// back, by the propagator.
type ProductionModel struct {
	bun.BaseModel `bun:"table:mrp_production,alias:mp"`

	ID               int64      `bun:"id,pk" json:"id"`
	Name             string     `bun:"name,notnull" json:"name"`
	DatePlannedStart *time.Time `bun:"date_planned_start" json:"date_planned_start,omitempty"`
	EmployeIdsTxt    string     `bun:"is_employe_ids_txt" json:"is_employe_ids_txt,omitempty"`
}

// WorkOrderModel maps is_ordre_travail, the per-production work order
// heading its operation lines.
type WorkOrderModel struct {
	bun.BaseModel `bun:"table:is_ordre_travail,alias:ot"`

	ID           int64   `bun:"id,pk" json:"id"`
	ProductionID int64   `bun:"production_id,notnull" json:"production_id"`
	Name         string  `bun:"name" json:"name,omitempty"`
	WorkcenterID *int64  `bun:"workcenter_id" json:"workcenter_id,omitempty"`
	DureeHeures  float64 `bun:"duree_heures" json:"duree_heures"`
}

// OperationLineModel maps is_ordre_travail_line, one operation of a work
// order. The propagator rewrites DateDebut, DateFin, DureeUnitaire and
// EmployeID; everything else is read-only scheduling input.
type OperationLineModel struct {
	bun.BaseModel `bun:"table:is_ordre_travail_line,alias:l"`

	ID           int64  `bun:"id,pk" json:"id"`
	OrdreID      int64  `bun:"ordre_id,notnull" json:"ordre_id"`
	Name         string `bun:"name" json:"name,omitempty"`
	Sequence     int    `bun:"sequence,notnull,default:10" json:"sequence"`
	WorkcenterID *int64 `bun:"workcenter_id" json:"workcenter_id,omitempty"`
	EmployeID    *int64 `bun:"employe_id" json:"employe_id,omitempty"`

	DateDebut     *time.Time `bun:"date_debut" json:"date_debut,omitempty"`
	DateFin       *time.Time `bun:"date_fin" json:"date_fin,omitempty"`
	ResteHeures   float64    `bun:"reste_heures" json:"reste_heures"`
	DureeUnitaire float64    `bun:"duree_unitaire" json:"duree_unitaire"`

	// Chaining rules between this line and its predecessor.
	RecouvrementPct  float64 `bun:"recouvrement_pct" json:"recouvrement_pct"`
	TransitionHeures float64 `bun:"transition_heures" json:"transition_heures"`
}
