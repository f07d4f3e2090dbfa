package core

// Datasource is a server-managed enumeration referenced by slug from option fields.
type Datasource struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// DatasourceEntry is one key/value pair of a datasource.
type DatasourceEntry struct {
	ID           int    `json:"id"`
	DatasourceID int    `json:"-"`
	Name         string `json:"name"`
	Value        string `json:"value"`
}
