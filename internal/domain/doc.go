// Package domain turns dispatch snapshots into renderable response maps.
//
// # Coordinates
//
// Coordinates travel as "lon,lat" text, longitude first, in WGS-84 decimal
// degrees. The map renderer wants [lat, lng], so positions are swapped into
// [LatLng] exactly once, in [MapBuilder.Build]. Nothing else reorders axes.
//
// Parsing is strict: two comma-separated decimal tokens, optional surrounding
// spaces, finite values only. When a region is configured the point must also
// fall inside it. Failures are classified as [ReasonMalformed] or
// [ReasonOutOfRegion].
//
// # Schema reconciliation
//
// The dispatch API has shipped two incident schemas. The current one uses
// case_id, emergency_type, case_status, priority_level, village and location;
// the legacy one uses id, disaster_type, status, severity, location_name and
// gps_coordinates. [NormalizeIncident] resolves every canonical field through
// an ordered list of source keys, current first, and never fails.
//
// # Routes
//
// The server decides the visit order. [Assembler.Assemble] never reorders it;
// it only drops identifiers it cannot resolve or place, repeats of an
// identifier already visited, and reports each drop through [Diagnostics].
// Only an unparseable start point is an error ([ErrInvalidStart]).
//
// # Rendering
//
// [DecodeSnapshot] normalizes incidents on the way in; [Renderer.Render] then
// runs assemble → build and holds no state between calls. Identical snapshots
// produce identical maps.
package domain
