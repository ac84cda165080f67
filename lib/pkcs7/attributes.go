/*
 * Copyright (c) SAS Institute Inc.
 *
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

package pkcs7

import (
	"encoding/asn1"
	"errors"
	"fmt"
	"reflect"

	"github.com/sassoftware/fwseal/lib/der"
)

// Attribute is an OID with a SET OF values. Values holds the encoded SET.
type Attribute struct {
	Type   asn1.ObjectIdentifier
	Values asn1.RawValue `asn1:"set"`
}

// RawValues returns the encoding of each value in the set.
func (a Attribute) RawValues() ([][]byte, error) {
	full := a.Values.FullBytes
	if len(full) == 0 {
		full = der.MarshalSet(splitValues(a.Values.Bytes))
	}
	v, err := der.Parse(full)
	if err != nil {
		return nil, err
	}
	set, ok := v.(*der.Constructed)
	if !ok || set.Tag() != der.TagSet {
		return nil, fmt.Errorf("pkcs7: %w: attribute values are not a SET", der.ErrMalformedStructure)
	}
	values := make([][]byte, len(set.Members()))
	for i, m := range set.Members() {
		values[i] = der.Encode(m)
	}
	return values, nil
}

func splitValues(content []byte) [][]byte {
	var values [][]byte
	for len(content) > 0 {
		_, n, err := der.Decode(content)
		if err != nil {
			break
		}
		values = append(values, content[:n])
		content = content[n:]
	}
	return values
}

type AttributeList []Attribute

// Add marshals value and appends it to the attribute named by oid, creating
// the attribute if needed.
func (l *AttributeList) Add(oid asn1.ObjectIdentifier, value interface{}) error {
	encoded, err := der.Marshal(value)
	if err != nil {
		return fmt.Errorf("pkcs7: marshalling attribute %s: %w", oid, err)
	}
	return l.AddRaw(oid, encoded)
}

// AddRaw appends an already encoded value.
func (l *AttributeList) AddRaw(oid asn1.ObjectIdentifier, encoded []byte) error {
	if _, err := der.Parse(encoded); err != nil {
		return fmt.Errorf("pkcs7: attribute %s: %w", oid, err)
	}
	for i, attr := range *l {
		if attr.Type.Equal(oid) {
			values, err := attr.RawValues()
			if err != nil {
				return err
			}
			values = append(values, encoded)
			(*l)[i].Values = asn1.RawValue{FullBytes: der.MarshalSet(values)}
			return nil
		}
	}
	*l = append(*l, Attribute{
		Type:   oid,
		Values: asn1.RawValue{FullBytes: der.MarshalSet([][]byte{encoded})},
	})
	return nil
}

// Remove deletes the attribute named by oid, if present.
func (l *AttributeList) Remove(oid asn1.ObjectIdentifier) {
	var kept AttributeList
	for _, attr := range *l {
		if !attr.Type.Equal(oid) {
			kept = append(kept, attr)
		}
	}
	*l = kept
}

// Exists returns true if an attribute named by oid is present.
func (l AttributeList) Exists(oid asn1.ObjectIdentifier) bool {
	for _, attr := range l {
		if attr.Type.Equal(oid) {
			return true
		}
	}
	return false
}

// Raw returns the encoded values of every attribute named by oid.
func (l AttributeList) Raw(oid asn1.ObjectIdentifier) ([][]byte, error) {
	var all [][]byte
	for _, attr := range l {
		if attr.Type.Equal(oid) {
			values, err := attr.RawValues()
			if err != nil {
				return nil, err
			}
			all = append(all, values...)
		}
	}
	return all, nil
}

// GetOne unmarshals the single value of an attribute into dest. It is an
// error for the attribute to be missing or to have more than one value.
func (l AttributeList) GetOne(oid asn1.ObjectIdentifier, dest interface{}) error {
	values, err := l.Raw(oid)
	if err != nil {
		return err
	}
	switch len(values) {
	case 0:
		return fmt.Errorf("%w: %s", ErrNoAttribute, oid)
	case 1:
		return der.Unmarshal(values[0], dest)
	default:
		return fmt.Errorf("pkcs7: expected 1 value for attribute %s but found %d", oid, len(values))
	}
}

// GetAll unmarshals every value of an attribute into dest, which must be a
// pointer to a slice.
func (l AttributeList) GetAll(oid asn1.ObjectIdentifier, dest interface{}) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return errors.New("pkcs7: GetAll destination must be a pointer to a slice")
	}
	values, err := l.Raw(oid)
	if err != nil {
		return err
	}
	slice := rv.Elem()
	for _, value := range values {
		elem := reflect.New(slice.Type().Elem())
		if err := der.Unmarshal(value, elem.Interface()); err != nil {
			return err
		}
		slice.Set(reflect.Append(slice, elem.Elem()))
	}
	return nil
}

// Bytes returns the canonical DER encoding of the list as a SET OF, which is
// the input to the signature over authenticated attributes.
func (l AttributeList) Bytes() ([]byte, error) {
	elems := make([][]byte, len(l))
	for i, attr := range l {
		encoded, err := der.Marshal(attr)
		if err != nil {
			return nil, err
		}
		elems[i] = encoded
	}
	return der.MarshalSet(elems), nil
}
