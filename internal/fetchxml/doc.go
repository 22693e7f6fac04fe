// Package fetchxml parses FetchXML documents into query expressions.
//
// Supported elements:
//
//	<fetch top count page returntotalrecordcount distinct>
//	  <entity name>
//	    <attribute name/> | <all-attributes/>
//	    <order attribute descending/>
//	    <filter type="and|or">
//	      <condition attribute operator value entityname>
//	        <value>...</value>
//	      </condition>
//	      <filter>...</filter>
//	    </filter>
//	    <link-entity name from to alias link-type="inner|outer">...</link-entity>
//	  </entity>
//	</fetch>
//
// Condition values are typed from metadata when a Schema is supplied.
// Without one they are inferred from their text.
package fetchxml
