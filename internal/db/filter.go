package db

import (
	"go.mongodb.org/mongo-driver/bson"
)

// FilterBuilder helps build MongoDB filters fluently
type FilterBuilder struct {
	filter bson.M
}

// NewFilter creates a new FilterBuilder
func NewFilter() *FilterBuilder {
	return &FilterBuilder{filter: bson.M{}}
}

// Eq adds an equality condition
func (f *FilterBuilder) Eq(field string, value interface{}) *FilterBuilder {
	f.filter[field] = value
	return f
}

// Lt adds a less-than condition
func (f *FilterBuilder) Lt(field string, value interface{}) *FilterBuilder {
	f.filter[field] = bson.M{"$lt": value}
	return f
}

// In adds an $in condition (value in array)
func (f *FilterBuilder) In(field string, values interface{}) *FilterBuilder {
	f.filter[field] = bson.M{"$in": values}
	return f
}

// Or combines multiple filters with OR
func (f *FilterBuilder) Or(filters ...bson.M) *FilterBuilder {
	if len(filters) > 0 {
		f.filter["$or"] = filters
	}
	return f
}

// Build returns the final bson.M filter
func (f *FilterBuilder) Build() bson.M {
	return f.filter
}

// Between two users, in either direction.
func Between(senderField, receiverField string, a, b interface{}) bson.M {
	return NewFilter().Or(
		bson.M{senderField: a, receiverField: b},
		bson.M{senderField: b, receiverField: a},
	).Build()
}

// Involving matches documents where id appears in either field.
func Involving(senderField, receiverField string, id interface{}) bson.M {
	return NewFilter().Or(
		bson.M{senderField: id},
		bson.M{receiverField: id},
	).Build()
}

// Newest sorts by the given time field, then _id, both descending.
func Newest(timeField string) bson.D {
	return bson.D{{Key: timeField, Value: -1}, {Key: "_id", Value: -1}}
}
