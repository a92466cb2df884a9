// Package models defines domain entities and persistence interfaces for the scrobblex listening dashboard.
//
// The package contains three categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing Last.fm data
//   - [UserInfo] : Profile returned by user.getInfo
//   - [Track], [Album], [Artist] : Ranked entries of the top lists
//   - [Scrobble] : One play from the listening history
//   - [TrackInfo] : Album release metadata from track.getInfo
//
// 2. Chart datasets: Read-only aggregates consumed by the dashboard charts
//   - [Dataset], [HeatmapDataset], [SeriesDataset] : Per-chart series
//   - [ChartData] : Every dataset keyed by chart
//   - [Dashboard] : The whole page payload including [WeeklyComparison]
//
// 3. Persistent Entities: Database-backed models with full lifecycle management
//   - [Profile] : Last.fm users known to this install
//   - [CachedScrobble] : Listening history cached for exports
//   - [Snapshot] : Serialized dashboards reused until they expire
//   - [ExportJob] : Export operations tracking progress and results
//
// All persistent entities implement the Model interface providing ID generation, timestamps and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
