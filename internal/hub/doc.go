// Package hub talks to the remote dataset hub. Dataset existence and revision
// come from the Hub API (/api/datasets/<id>); split listings and row pages come
// from the datasets-server API (/splits, /rows). FetchDataset stitches these
// together into a complete dataset.Dataset, paging through every split. A
// dataset the hub refuses to show (401/403/404) is reported as
// dataset.ErrNotFound so callers can tell it apart from transport failures.
package hub
