/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

// Params are named query arguments interpreted by a store's filter hooks.
type Params map[string]interface{}

// Criteria narrows a store query: optional pagination plus named params.
// A nil *Criteria matches everything.
type Criteria struct {
	Offset *int
	Limit  *int
	Params Params
}

// Where returns criteria holding params.
func Where(params Params) *Criteria {
	return &Criteria{Params: params}
}

// Eq is shorthand for Where(Params{name: value}).
func Eq(name string, value interface{}) *Criteria {
	return Where(Params{name: value})
}

func (c *Criteria) WithOffset(offset int) *Criteria {
	c = c.orEmpty()
	c.Offset = &offset
	return c
}

func (c *Criteria) WithLimit(limit int) *Criteria {
	c = c.orEmpty()
	c.Limit = &limit
	return c
}

// With adds a named param.
func (c *Criteria) With(name string, value interface{}) *Criteria {
	c = c.orEmpty()
	if c.Params == nil {
		c.Params = Params{}
	}
	c.Params[name] = value
	return c
}

// Param returns a named param; a nil value counts as absent.
func (c *Criteria) Param(name string) (interface{}, bool) {
	if c == nil || c.Params == nil {
		return nil, false
	}
	value, ok := c.Params[name]
	if value == nil {
		return nil, false
	}
	return value, ok
}

func (c *Criteria) GetOffset() (int, bool) {
	if c == nil || c.Offset == nil {
		return 0, false
	}
	return *c.Offset, true
}

func (c *Criteria) GetLimit() (int, bool) {
	if c == nil || c.Limit == nil {
		return 0, false
	}
	return *c.Limit, true
}

func (c *Criteria) orEmpty() *Criteria {
	if c == nil {
		return &Criteria{}
	}
	return c
}

// PageRequest describes a page of results, the criteria selecting them and
// an optional ordering that replaces the store's default.
type PageRequest struct {
	page     int
	pageSize int
	criteria *Criteria
	orders   []string // "id ASC", "name DESC"
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = 10
	}
	return p.pageSize
}

func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		p.page = 1
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// GetCriteria returns the criteria of the page without its own pagination.
func (p *PageRequest) GetCriteria() *Criteria {
	if p.criteria == nil {
		return nil
	}
	return &Criteria{Params: p.criteria.Params}
}

func (p *PageRequest) GetOrders() []string {
	return p.orders
}

// NewPageRequest constructs a PageRequest with criteria and order settings.
func NewPageRequest(page int, pageSize int, criteria *Criteria, orders []string) *PageRequest {
	return &PageRequest{page, pageSize, criteria, orders}
}

// NewDefaultPageRequest constructs a PageRequest matching everything in the
// store's default order.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil, nil)
}

// Pagination holds paged result items along with pagination metadata.
type Pagination[T any] struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Total    int  `json:"total"`
	Items    []*T `json:"items"`
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{page, pageSize, 0, make([]*T, 0)}
}

// Pages returns the number of pages needed for Total items.
func (p *Pagination[T]) Pages() int {
	if p.PageSize < 1 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}
