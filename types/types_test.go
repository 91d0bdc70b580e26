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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTruthy(t *testing.T) {
	for _, v := range []interface{}{true, 1, int64(-3), uint8(1), 0.5, "Yes", "y", "T", "true", " on ", "1", []byte("TRUE")} {
		b, err := ParseTruthy(v)
		require.NoError(t, err, "%#v", v)
		assert.True(t, b.Bool(), "%#v", v)
	}
	for _, v := range []interface{}{nil, false, 0, uint64(0), 0.0, "", "No", "n", "f", "FALSE", "off", "0"} {
		b, err := ParseTruthy(v)
		require.NoError(t, err, "%#v", v)
		assert.False(t, b.Bool(), "%#v", v)
	}
	for _, v := range []interface{}{"maybe", "2", struct{}{}} {
		_, err := ParseTruthy(v)
		assert.Error(t, err, "%#v", v)
	}
}

func TestTruthyScan(t *testing.T) {
	var b Truthy
	require.NoError(t, b.Scan("yes"))
	assert.True(t, b.Bool())
	assert.Equal(t, "true", b.String())

	require.NoError(t, b.Scan(int64(0)))
	assert.False(t, b.Bool())

	assert.Error(t, b.Scan("perhaps"))

	v, err := Truthy(true).Value()
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestJsonObject(t *testing.T) {
	var obj JsonObject
	require.NoError(t, obj.Scan(`{"a":1}`))
	assert.Equal(t, JsonObject{"a": float64(1)}, obj)

	require.NoError(t, obj.Scan([]byte(`{"b":"c"}`)))
	assert.Equal(t, JsonObject{"b": "c"}, obj)

	require.NoError(t, obj.Scan(nil))
	assert.Empty(t, obj)

	assert.Error(t, obj.Scan(42))

	v, err := JsonObject{"a": 1}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(v.([]byte)))

	v, err = JsonObject(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestJsonArray(t *testing.T) {
	var arr JsonArray
	require.NoError(t, arr.Scan(`[{"a":1},{"a":2}]`))
	assert.Len(t, arr, 2)

	require.NoError(t, arr.Scan(""))
	assert.Empty(t, arr)
}

func TestJsonScanReusedTarget(t *testing.T) {
	obj := JsonObject{"stale": true}
	require.NoError(t, obj.Scan(`{"b":"c"}`))
	assert.Equal(t, JsonObject{"b": "c"}, obj)

	var arr JsonArray
	require.NoError(t, arr.Scan(`[{"a":1,"x":2},{"a":2}]`))
	require.NoError(t, arr.Scan(`[{"b":1}]`))
	assert.Equal(t, JsonArray{{"b": float64(1)}}, arr)
}

func TestCriteria(t *testing.T) {
	var c *Criteria
	_, ok := c.Param("a")
	assert.False(t, ok)
	_, ok = c.GetLimit()
	assert.False(t, ok)

	c = c.With("a", 1).WithOffset(5).WithLimit(10)
	v, ok := c.Param("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	offset, _ := c.GetOffset()
	limit, _ := c.GetLimit()
	assert.Equal(t, 5, offset)
	assert.Equal(t, 10, limit)

	_, ok = Eq("a", nil).Param("a")
	assert.False(t, ok)
}

func TestPageRequest(t *testing.T) {
	req := NewPageRequest(0, 0, Eq("a", 1).WithLimit(3), []string{"id DESC"})
	assert.Equal(t, 1, req.GetPage())
	assert.Equal(t, 10, req.GetPageSize())
	assert.Equal(t, 0, req.GetOffset())
	assert.Equal(t, []string{"id DESC"}, req.GetOrders())

	c := req.GetCriteria()
	_, ok := c.GetLimit()
	assert.False(t, ok, "page criteria drop their own pagination")
	v, _ := c.Param("a")
	assert.Equal(t, 1, v)

	assert.Equal(t, 20, NewDefaultPageRequest(3, 10).GetOffset())
	assert.Nil(t, NewDefaultPageRequest(1, 10).GetCriteria())
}

func TestPaginationPages(t *testing.T) {
	p := NewDefaultPagination[struct{}](1, 10)
	assert.Equal(t, 0, p.Pages())
	assert.NotNil(t, p.Items)
	p.Total = 21
	assert.Equal(t, 3, p.Pages())
	p.PageSize = 0
	assert.Equal(t, 0, p.Pages())
}
